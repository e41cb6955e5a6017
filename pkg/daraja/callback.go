package daraja

import (
	"fmt"
	"strconv"
	"time"
)

// CallbackEnvelope is the JSON body Daraja POSTs to the callback URL
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback carries the outcome of a previously initiated STK push
type StkCallback struct {
	MerchantRequestID string   `json:"MerchantRequestID"`
	CheckoutRequestID string   `json:"CheckoutRequestID"`
	ResultCode        int      `json:"ResultCode"`
	ResultDesc        string   `json:"ResultDesc"`
	CallbackMetadata  Metadata `json:"CallbackMetadata"`
}

// Metadata is the name/value item list attached to successful callbacks
type Metadata struct {
	Items []MetadataItem `json:"Item"`
}

// MetadataItem is a single name/value pair. Values arrive as strings or
// JSON numbers depending on the field.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// PaymentDetails is the typed view of the callback metadata
type PaymentDetails struct {
	ReceiptNumber   string
	Amount          float64
	PhoneNumber     string
	TransactionDate time.Time
}

// metadataSetters maps metadata item names to typed field setters. Unknown
// names are ignored so provider-side additions do not break parsing.
var metadataSetters = map[string]func(*PaymentDetails, interface{}) error{
	"MpesaReceiptNumber": func(d *PaymentDetails, v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("MpesaReceiptNumber: expected string, got %T", v)
		}
		d.ReceiptNumber = s
		return nil
	},
	"Amount": func(d *PaymentDetails, v interface{}) error {
		f, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("Amount: %w", err)
		}
		d.Amount = f
		return nil
	},
	"PhoneNumber": func(d *PaymentDetails, v interface{}) error {
		d.PhoneNumber = toString(v)
		return nil
	},
	"TransactionDate": func(d *PaymentDetails, v interface{}) error {
		ts, err := time.Parse(timestampLayout, toString(v))
		if err != nil {
			return fmt.Errorf("TransactionDate: %w", err)
		}
		d.TransactionDate = ts
		return nil
	},
}

// PaymentDetails decodes the metadata items into a typed struct and
// validates that the fields a successful payment must carry are present.
func (cb *StkCallback) PaymentDetails() (*PaymentDetails, error) {
	var details PaymentDetails
	for _, item := range cb.CallbackMetadata.Items {
		setter, ok := metadataSetters[item.Name]
		if !ok {
			continue
		}
		if err := setter(&details, item.Value); err != nil {
			return nil, fmt.Errorf("callback metadata: %w", err)
		}
	}

	if details.ReceiptNumber == "" {
		return nil, fmt.Errorf("callback metadata: missing MpesaReceiptNumber")
	}
	if details.Amount <= 0 {
		return nil, fmt.Errorf("callback metadata: missing Amount")
	}
	return &details, nil
}

// AckResponse is the body Daraja expects back from the callback URL. The
// provider only inspects the body, so internal failures are still HTTP 200
// with a nonzero code.
type AckResponse struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Ack is the neutral success acknowledgement
func Ack() AckResponse {
	return AckResponse{ResultCode: 0, ResultDesc: "Accepted"}
}

// Nack reports an internal processing failure to trigger a provider retry
func Nack(desc string) AckResponse {
	return AckResponse{ResultCode: 1, ResultDesc: desc}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; dates and phone numbers are
		// integral, so print without an exponent or fraction
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
