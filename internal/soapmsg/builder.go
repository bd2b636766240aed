package soapmsg

import (
	"fmt"
	"strings"
	"time"
)

// Credentials carry the username/password pair placed in WS-Security headers.
type Credentials struct {
	Username string
	Password string
}

// Placeholder credentials applied by the legacy dialect when none are
// configured. The downstream consumer validates presence, not value.
const (
	defaultLegacyUsername = "systemID"
	defaultLegacyPassword = "password"
)

// Builder wraps business payloads in the partner SOAP dialects. All dialect
// selection is by caller intent; the builder never sniffs content.
type Builder struct {
	catalog *Catalog
}

// NewBuilder returns a Builder backed by the given schema catalog.
func NewBuilder(catalog *Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// WrapWSSecurity builds the modern partner dialect: SOAP 1.2 envelope with a
// WS-Security username token header and the payload namespaced per the
// schema catalog.
func (b *Builder) WrapWSSecurity(messageName, payload string, creds Credentials) (string, error) {
	ns, err := b.catalog.Namespace(messageName)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope" xmlns:oas="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">`)
	sb.WriteString(`<soap:Header>`)
	writeSecurityHeader(&sb, creds.Username, creds.Password)
	sb.WriteString(`</soap:Header>`)
	sb.WriteString(`<soap:Body>`)
	sb.WriteString(withDefaultNamespace(payload, ns))
	sb.WriteString(`</soap:Body>`)
	sb.WriteString(`</soap:Envelope>`)
	return sb.String(), nil
}

// WrapLegacy builds the legacy-to-partner dialect. The downstream consumer
// predates nested-body support and requires the business payload serialized
// as escaped inline markup inside the wrapper element; credentials default to
// placeholders when unset.
func (b *Builder) WrapLegacy(messageName, payload string, creds Credentials) (string, error) {
	ns, err := b.catalog.Namespace(messageName)
	if err != nil {
		return "", err
	}
	if creds.Username == "" {
		creds.Username = defaultLegacyUsername
	}
	if creds.Password == "" {
		creds.Password = defaultLegacyPassword
	}
	var sb strings.Builder
	sb.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:oas="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">`)
	sb.WriteString(`<soapenv:Header>`)
	writeSecurityHeader(&sb, creds.Username, creds.Password)
	sb.WriteString(`</soapenv:Header>`)
	sb.WriteString(`<soapenv:Body>`)
	fmt.Fprintf(&sb, `<%s xmlns=%q>%s</%s>`, messageName, ns, escapeInline(payload), messageName)
	sb.WriteString(`</soapenv:Body>`)
	sb.WriteString(`</soapenv:Envelope>`)
	return sb.String(), nil
}

// WrapSynthetic builds the dialect used toward the modernized system: no
// security header, a service header carrying schema version, user
// identification, and sending date ahead of the business payload.
func (b *Builder) WrapSynthetic(messageName, payload, user string, sentAt time.Time) (string, error) {
	ns, err := b.catalog.Namespace(messageName)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">`)
	sb.WriteString(`<soap:Body>`)
	fmt.Fprintf(&sb, `<%s xmlns=%q>`, messageName, ns)
	sb.WriteString(`<ServiceHeader>`)
	sb.WriteString(`<SchemaVersion>2.0</SchemaVersion>`)
	fmt.Fprintf(&sb, `<UserIdentification>%s</UserIdentification>`, user)
	fmt.Fprintf(&sb, `<SendingDate>%s</SendingDate>`, sentAt.UTC().Format(time.RFC3339))
	sb.WriteString(`</ServiceHeader>`)
	sb.WriteString(payload)
	fmt.Fprintf(&sb, `</%s>`, messageName)
	sb.WriteString(`</soap:Body>`)
	sb.WriteString(`</soap:Envelope>`)
	return sb.String(), nil
}

func writeSecurityHeader(sb *strings.Builder, username, password string) {
	sb.WriteString(`<oas:Security>`)
	sb.WriteString(`<oas:UsernameToken>`)
	fmt.Fprintf(sb, `<oas:Username>%s</oas:Username>`, username)
	fmt.Fprintf(sb, `<oas:Password>%s</oas:Password>`, password)
	sb.WriteString(`</oas:UsernameToken>`)
	sb.WriteString(`</oas:Security>`)
}

// withDefaultNamespace injects a default xmlns declaration into the payload's
// root start tag. Payloads produced by the transcoder carry no namespaces of
// their own.
func withDefaultNamespace(payload, ns string) string {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "<") {
		return trimmed
	}
	end := strings.IndexAny(trimmed, " />")
	if end <= 1 {
		return trimmed
	}
	name := trimmed[1:end]
	return fmt.Sprintf(`<%s xmlns=%q%s`, name, ns, trimmed[end:])
}

var inlineEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeInline(payload string) string {
	return inlineEscaper.Replace(strings.TrimSpace(payload))
}
