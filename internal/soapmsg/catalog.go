package soapmsg

import "fmt"

// UnknownMessageError indicates a message type absent from the protocol
// schema catalog. It is a configuration defect: every message the gateway
// builds envelopes for must be registered before the process serves traffic.
type UnknownMessageError struct{ Name string }

func (e UnknownMessageError) Error() string {
	return fmt.Sprintf("message type %q not present in schema catalog", e.Name)
}

// Catalog maps message-type names to their canonical target namespaces and
// holds the canned success bodies served by synthetic-success destinations.
// It is built once and never mutated.
type Catalog struct {
	namespaces map[string]string
	responses  map[string]string
}

// NewCatalog returns the protocol schema catalog for the customs-declaration
// message set.
func NewCatalog() *Catalog {
	return &Catalog{
		namespaces: map[string]string{
			"ALVSClearanceRequest":            "http://submitimportdocumenthmrcfacade.types.esb.ws.cara.defra.com",
			"ALVSClearanceRequestPost":        "http://uk.gov.hmrc.itsw.ws",
			"FinalisationNotificationRequest": "http://notifyfinalisedstatehmrcfacade.types.esb.ws.cara.defra.com",
			"DecisionNotification":            "http://notifydecisionimportservice.types.esb.ws.cara.defra.com",
			"ALVSErrorNotificationRequest":    "http://alvserrornotification.types.esb.ws.cara.defra.com",
			"HMRCErrorNotification":           "http://hmrcerrornotification.types.esb.ws.cara.defra.com",
		},
		responses: map[string]string{
			"ALVSClearanceRequest":            clearanceRequestAck,
			"FinalisationNotificationRequest": finalisationAck,
			"DecisionNotification":            decisionNotificationAck,
			"ALVSErrorNotificationRequest":    errorNotificationAck,
		},
	}
}

// Namespace returns the canonical target namespace for a message type.
func (c *Catalog) Namespace(messageName string) (string, error) {
	ns, ok := c.namespaces[messageName]
	if !ok {
		return "", UnknownMessageError{Name: messageName}
	}
	return ns, nil
}

// SyntheticResponse returns the canned success body for a message type, if
// one exists. Synthetic-success destinations reply with these without
// contacting the real backend.
func (c *Catalog) SyntheticResponse(messageName string) (string, bool) {
	body, ok := c.responses[messageName]
	return body, ok
}

const clearanceRequestAck = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <ALVSClearanceResponse xmlns="http://submitimportdocumenthmrcfacade.types.esb.ws.cara.defra.com">
      <StatusCode>000</StatusCode>
    </ALVSClearanceResponse>
  </soap:Body>
</soap:Envelope>`

const finalisationAck = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <FinalisationNotificationResponse xmlns="http://notifyfinalisedstatehmrcfacade.types.esb.ws.cara.defra.com">
      <StatusCode>000</StatusCode>
    </FinalisationNotificationResponse>
  </soap:Body>
</soap:Envelope>`

const decisionNotificationAck = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <DecisionNotificationResponse xmlns="http://notifydecisionimportservice.types.esb.ws.cara.defra.com">
      <StatusCode>000</StatusCode>
    </DecisionNotificationResponse>
  </soap:Body>
</soap:Envelope>`

const errorNotificationAck = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <ALVSErrorNotificationResponse xmlns="http://alvserrornotification.types.esb.ws.cara.defra.com">
      <StatusCode>000</StatusCode>
    </ALVSErrorNotificationResponse>
  </soap:Body>
</soap:Envelope>`
