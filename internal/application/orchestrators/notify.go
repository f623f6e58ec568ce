package orchestrators

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"

	emailAdapter "directory/internal/adapters/email"
	domainRoster "directory/internal/domain/roster"
)

var changeNoticeTmpl = template.Must(template.New("notice").Parse(`<p>The staff directory entry for <strong>{{.Identity}}</strong> was {{.Verb}}.</p>
<table>
{{- range .Fields}}
<tr><th align="left">{{.Name}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- if .Revision}}
<p>Directory version V2.0.{{.Revision}}</p>
{{- end}}`))

type noticeField struct {
	Name  string
	Value string
}

type noticeData struct {
	Identity string
	Verb     string
	Fields   []noticeField
	Revision int
}

// sendChangeNotice emails the configured recipients. Failures are logged only.
func sendChangeNotice(ctx context.Context, n Notify, verb, identity string, headers domainRoster.Headers, rec domainRoster.Record, revision int) {
	if n.Sender == nil || len(n.To) == 0 {
		return
	}
	data := noticeData{Identity: identity, Verb: verb, Revision: revision}
	for i, h := range headers {
		if domainRoster.IsSensitive(h) || i >= len(rec) {
			continue
		}
		data.Fields = append(data.Fields, noticeField{Name: h, Value: rec[i]})
	}
	var body bytes.Buffer
	if err := changeNoticeTmpl.Execute(&body, data); err != nil {
		slog.Error("change_notice_render_failed", "error", err.Error())
		return
	}
	_, err := n.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      n.To,
		Subject: "Staff directory " + verb + ": " + identity,
		HTML:    body.String(),
		Text:    "The staff directory entry for " + identity + " was " + verb + ".",
		Tags:    map[string]string{"event": verb},
	})
	if err != nil {
		slog.Warn("change_notice_failed", "identity", identity, "error", err.Error())
	}
}
