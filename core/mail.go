package core

import (
	"bytes"
	"embed"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"
)

//go:embed assets/templates/email
var emailTemplateFS embed.FS

var (
	templates map[string]*texttmpl.Template
	tmplInit  sync.Once
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		AppName         string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render resolves the final text content of the message: a templated message
// is executed against its TemplateData, otherwise BodyStr is used as is.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" || m.TemplateName == "" {
		m.TextContent = m.BodyStr
		return nil
	}

	tmplInit.Do(parseTemplates)

	tmpl, ok := templates[m.TemplateName]
	if !ok {
		return nil
	}
	var buff bytes.Buffer
	data := ContextData{
		FrontendBaseURL: conf.FrontendBaseURL,
		AppName:         conf.AppName,
		Data:            m.TemplateData,
	}
	if err := tmpl.Execute(&buff, data); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

func parseTemplates() {
	templates = make(map[string]*texttmpl.Template)

	root := "assets/templates/email"
	entries, err := emailTemplateFS.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		fname := entry.Name()
		if strings.HasPrefix(fname, "_") || path.Ext(fname) != ".txt" {
			continue
		}
		name := strings.TrimSuffix(fname, ".txt")
		tmpl, err := texttmpl.ParseFS(emailTemplateFS, path.Join(root, "_base.txt"), path.Join(root, fname))
		if err != nil {
			continue
		}
		templates[name] = tmpl
	}
}
