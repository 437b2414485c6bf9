package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// TicketCreatedData feeds the "ticket created" email.
type TicketCreatedData struct {
	RequesterName   string
	Folio           string
	Title           string
	Category        string
	Priority        string
	AttachmentNames []string
	TicketURL       string
}

// TicketUpdatedData feeds the "ticket updated" email.
type TicketUpdatedData struct {
	RequesterName string
	Folio         string
	Title         string
	Status        string
	UpdatedBy     string
	CommentHTML   string
	TicketURL     string
}

var (
	createdHTML = htmltemplate.Must(htmltemplate.New("created").Parse(`<html><body>
<h2>Ticket {{.Folio}} received</h2>
<p>Hello {{.RequesterName}}, we registered your request.</p>
<table>
<tr><td>Folio</td><td>{{.Folio}}</td></tr>
<tr><td>Title</td><td>{{.Title}}</td></tr>
<tr><td>Category</td><td>{{.Category}}</td></tr>
<tr><td>Priority</td><td>{{.Priority}}</td></tr>
</table>
{{if .AttachmentNames}}<p>Attachments:</p><ul>{{range .AttachmentNames}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .TicketURL}}<p><a href="{{.TicketURL}}">View ticket</a></p>{{end}}
</body></html>`))

	createdText = texttemplate.Must(texttemplate.New("created").Parse(`Hello {{.RequesterName}},

We registered your request {{.Folio}}: {{.Title}}
Category: {{.Category}}
Priority: {{.Priority}}
{{range .AttachmentNames}}Attachment: {{.}}
{{end}}{{if .TicketURL}}
{{.TicketURL}}
{{end}}`))

	updatedHTML = htmltemplate.Must(htmltemplate.New("updated").Parse(`<html><body>
<h2>Ticket {{.Folio}} updated</h2>
<p>Hello {{.RequesterName}}, {{.UpdatedBy}} updated your ticket "{{.Title}}".</p>
<p>Current status: <strong>{{.Status}}</strong></p>
{{if .CommentHTML}}<div>{{.CommentHTML}}</div>{{end}}
{{if .TicketURL}}<p><a href="{{.TicketURL}}">View ticket</a></p>{{end}}
</body></html>`))

	updatedText = texttemplate.Must(texttemplate.New("updated").Parse(`Hello {{.RequesterName}},

{{.UpdatedBy}} updated your ticket {{.Folio}}: {{.Title}}
Current status: {{.Status}}
{{if .TicketURL}}
{{.TicketURL}}
{{end}}`))
)

// RenderTicketCreated builds the confirmation sent to the requester.
func RenderTicketCreated(to string, data TicketCreatedData) (Message, error) {
	return render(to, fmt.Sprintf("Ticket %s created: %s", data.Folio, data.Title), createdHTML, createdText, data)
}

// RenderTicketUpdated builds the update summary sent to the requester.
// CommentHTML must already be sanitized.
func RenderTicketUpdated(to string, data TicketUpdatedData) (Message, error) {
	view := struct {
		TicketUpdatedData
		CommentHTML htmltemplate.HTML
	}{TicketUpdatedData: data, CommentHTML: htmltemplate.HTML(data.CommentHTML)} //nolint:gosec
	msg, err := render(to, fmt.Sprintf("Ticket %s updated: %s", data.Folio, data.Status), updatedHTML, nil, view)
	if err != nil {
		return Message{}, err
	}
	var text bytes.Buffer
	if err := updatedText.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	msg.Text = text.String()
	return msg, nil
}

func render(to, subject string, html *htmltemplate.Template, text *texttemplate.Template, data any) (Message, error) {
	var htmlBuf bytes.Buffer
	if err := html.Execute(&htmlBuf, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	msg := Message{To: to, Subject: subject, HTML: htmlBuf.String()}
	if text != nil {
		var textBuf bytes.Buffer
		if err := text.Execute(&textBuf, data); err != nil {
			return Message{}, fmt.Errorf("render text: %w", err)
		}
		msg.Text = textBuf.String()
	}
	return msg, nil
}
