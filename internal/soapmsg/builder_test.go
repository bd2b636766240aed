package soapmsg

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWrapWSSecurity(t *testing.T) {
	b := NewBuilder(NewCatalog())
	out, err := b.WrapWSSecurity("DecisionNotification", `<DecisionNotification><Decision>RELEASE</Decision></DecisionNotification>`, Credentials{Username: "svc", Password: "secret"})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	for _, want := range []string{
		`xmlns:soap="http://www.w3.org/2003/05/soap-envelope"`,
		`<oas:Username>svc</oas:Username>`,
		`<oas:Password>secret</oas:Password>`,
		`<DecisionNotification xmlns="http://notifydecisionimportservice.types.esb.ws.cara.defra.com">`,
		`<Decision>RELEASE</Decision>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("envelope missing %q:\n%s", want, out)
		}
	}
	env, err := Parse(out)
	if err != nil {
		t.Fatalf("built envelope does not parse: %v", err)
	}
	if !env.HasMessage("DecisionNotification") {
		t.Errorf("built envelope has no DecisionNotification under Body")
	}
}

func TestWrapLegacyFlattensPayloadInline(t *testing.T) {
	b := NewBuilder(NewCatalog())
	out, err := b.WrapLegacy("DecisionNotification", `<Decision><Code>01</Code></Decision>`, Credentials{})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if !strings.Contains(out, `&lt;Decision&gt;&lt;Code&gt;01&lt;/Code&gt;&lt;/Decision&gt;`) {
		t.Errorf("payload not serialized as escaped inline markup:\n%s", out)
	}
	if strings.Contains(out, `<Decision><Code>`) {
		t.Errorf("payload leaked as nested elements:\n%s", out)
	}
	if !strings.Contains(out, `<oas:Username>systemID</oas:Username>`) || !strings.Contains(out, `<oas:Password>password</oas:Password>`) {
		t.Errorf("placeholder credentials not applied:\n%s", out)
	}
	if _, err := Parse(out); err != nil {
		t.Fatalf("built envelope does not parse: %v", err)
	}
}

func TestWrapSyntheticCarriesServiceHeader(t *testing.T) {
	b := NewBuilder(NewCatalog())
	sent := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	out, err := b.WrapSynthetic("ALVSClearanceRequest", `<Clearance/>`, "btms-gateway", sent)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	header := strings.Index(out, "<ServiceHeader>")
	payload := strings.Index(out, "<Clearance/>")
	if header < 0 || payload < 0 || header > payload {
		t.Fatalf("service header must precede payload:\n%s", out)
	}
	for _, want := range []string{
		`<SchemaVersion>2.0</SchemaVersion>`,
		`<UserIdentification>btms-gateway</UserIdentification>`,
		`<SendingDate>2026-03-14T09:30:00Z</SendingDate>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("envelope missing %q:\n%s", want, out)
		}
	}
}

func TestUnknownMessageTypeIsFatal(t *testing.T) {
	b := NewBuilder(NewCatalog())
	_, err := b.WrapWSSecurity("NotARegisteredMessage", `<X/>`, Credentials{})
	var unknown UnknownMessageError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownMessageError, got %v", err)
	}
	if unknown.Name != "NotARegisteredMessage" {
		t.Errorf("error names %q", unknown.Name)
	}
}

func TestSyntheticResponses(t *testing.T) {
	c := NewCatalog()
	for _, name := range []string{
		"ALVSClearanceRequest",
		"FinalisationNotificationRequest",
		"DecisionNotification",
		"ALVSErrorNotificationRequest",
	} {
		body, ok := c.SyntheticResponse(name)
		if !ok {
			t.Errorf("no canned response for %s", name)
			continue
		}
		if _, err := Parse(body); err != nil {
			t.Errorf("canned response for %s does not parse: %v", name, err)
		}
	}
	if _, ok := c.SyntheticResponse("DecisionNotificationResponse"); ok {
		t.Errorf("unexpected canned response for response type")
	}
}
