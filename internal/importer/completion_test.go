package importer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/ocr"
)

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) ExtractText(_ context.Context, data io.Reader) (*ocr.Result, error) {
	f.calls++
	if _, err := io.ReadAll(data); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ocr.Result{Text: f.text, PageCount: 1, Confidence: 0.9}, nil
}

type fakeChat struct {
	replies  []string
	errs     []error
	requests []openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	reply := f.replies[len(f.replies)-1]
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: reply}}},
	}, nil
}

const completionJSON = `{
  "invoice_number": "INV-9000",
  "invoice_date": "2024-05-02",
  "due_date": "2024-06-01",
  "customer_name": "Someone Else",
  "currency": "usd",
  "net_amount": 200,
  "tax_amount": "20.00",
  "total_amount": "220.00",
  "line_items": [
    {"description": "Design work", "quantity": 4, "unit_price": "50.00"},
    {"description": "", "quantity": 1, "unit_price": "1"}
  ]
}`

func TestCompleteFillsOnlyMissingFields(t *testing.T) {
	ocrFake := &fakeOCR{text: "INVOICE INV-9000 ..."}
	chat := &fakeChat{replies: []string{completionJSON}}
	completer := newOpenAICompleter(ocrFake, chat, CompletionConfig{CompanyName: "Acme", MaxRetries: 3, Temperature: 0.1})

	partial := &ImportedInvoice{
		CustomerName: "Globex",
		TotalAmount:  decimal.RequireFromString("220"),
		Confidence:   map[string]float32{"receiver_name": 0.95},
	}

	got, err := completer.Complete(context.Background(), partial, samplePDF)
	require.NoError(t, err)

	assert.Equal(t, 1, ocrFake.calls)
	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, openai.GPT4oMini, req.Model)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[0].Content, "Acme")
	assert.Contains(t, req.Messages[1].Content, "Customer: Globex")
	assert.Contains(t, req.Messages[1].Content, "INVOICE INV-9000")

	assert.Equal(t, "INV-9000", got.InvoiceNumber)
	assert.Equal(t, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), got.DueDate)
	assert.Equal(t, "Globex", got.CustomerName, "known customer kept")
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "200", got.NetAmount.String())
	assert.Equal(t, "20", got.TaxAmount.String())
	assert.Equal(t, "220", got.TotalAmount.String())

	require.Len(t, got.Items, 1)
	assert.Equal(t, "Design work", got.Items[0].Description)
	assert.Equal(t, 4, got.Items[0].Quantity)
	assert.Equal(t, "50", got.Items[0].UnitPrice.String())

	assert.InDelta(t, 0.95, got.Confidence["receiver_name"], 0.0001)
	assert.InDelta(t, 0.9, got.Confidence[FieldInvoiceNumber], 0.0001)
	assert.Empty(t, got.MissingFields())

	assert.Empty(t, partial.InvoiceNumber, "input is not modified")
	assert.NotContains(t, partial.Confidence, FieldInvoiceNumber)
}

func TestCompleteRoundsFractionalQuantity(t *testing.T) {
	reply := `{"invoice_number": "INV-1", "invoice_date": "2024-05-02",
  "line_items": [{"description": "Support", "quantity": 2.5, "unit_price": "40"}]}`
	completer := newOpenAICompleter(&fakeOCR{text: "..."}, &fakeChat{replies: []string{reply}}, CompletionConfig{MaxRetries: 1})

	got, err := completer.Complete(context.Background(), &ImportedInvoice{}, samplePDF)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, "2.5", got.Items[0].StatedQuantity)
}

func TestCompleteSkipsCompleteInvoice(t *testing.T) {
	ocrFake := &fakeOCR{}
	chat := &fakeChat{replies: []string{"{}"}}
	completer := newOpenAICompleter(ocrFake, chat, CompletionConfig{})

	inv := &ImportedInvoice{
		InvoiceNumber: "A-1",
		Date:          time.Now(),
		Items:         []ImportedItem{{Description: "Widget", Quantity: 1}},
	}
	got, err := completer.Complete(context.Background(), inv, samplePDF)
	require.NoError(t, err)
	assert.Same(t, inv, got)
	assert.Zero(t, ocrFake.calls)
	assert.Empty(t, chat.requests)
}

func TestCompleteRetries(t *testing.T) {
	chat := &fakeChat{
		errs:    []error{errors.New("rate limited")},
		replies: []string{"", "not json", completionJSON},
	}
	completer := newOpenAICompleter(&fakeOCR{text: "text"}, chat, CompletionConfig{MaxRetries: 3})

	got, err := completer.Complete(context.Background(), &ImportedInvoice{}, samplePDF)
	require.NoError(t, err)
	assert.Len(t, chat.requests, 3)
	assert.Equal(t, "INV-9000", got.InvoiceNumber)
}

func TestCompleteGivesUp(t *testing.T) {
	chat := &fakeChat{replies: []string{"not json"}}
	completer := newOpenAICompleter(&fakeOCR{text: "text"}, chat, CompletionConfig{MaxRetries: 2})

	_, err := completer.Complete(context.Background(), &ImportedInvoice{}, samplePDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed)
	assert.Len(t, chat.requests, 2)
}

func TestCompleteOCRFailure(t *testing.T) {
	completer := newOpenAICompleter(&fakeOCR{err: ocr.ErrEmptyDocument}, &fakeChat{replies: []string{"{}"}}, CompletionConfig{})

	_, err := completer.Complete(context.Background(), &ImportedInvoice{}, samplePDF)
	assert.ErrorIs(t, err, ocr.ErrEmptyDocument)
}

func TestParseCompletionNulls(t *testing.T) {
	got, err := parseCompletion(`{"invoice_number": null, "net_amount": 12.5, "line_items": "none"}`)
	require.NoError(t, err)
	assert.Empty(t, got.InvoiceNumber)
	assert.Equal(t, "12.5", got.NetAmount)
	assert.Empty(t, got.LineItems)
}
