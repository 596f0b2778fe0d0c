package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"invoicer/internal/logger"
	"invoicer/internal/ocr"
	"invoicer/pkg/models"
)

// Completer fills fields an Extractor could not read.
type Completer interface {
	Complete(ctx context.Context, inv *ImportedInvoice, content []byte) (*ImportedInvoice, error)
}

// CompletionConfig configures the OpenAI completion step.
type CompletionConfig struct {
	CompanyName string // our own name, so the model does not take it for the customer
	MaxRetries  int
	OpenAIModel string
	Temperature float32
}

// chatClient is the subset of the OpenAI client used here.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICompleter OCRs the document and asks a chat model for the missing
// fields.
type OpenAICompleter struct {
	ocrService ocr.Service
	client     chatClient
	config     CompletionConfig
	log        zerolog.Logger
}

// NewOpenAICompleter creates a completer talking to the OpenAI API.
func NewOpenAICompleter(ocrService ocr.Service, apiKey string, config CompletionConfig) *OpenAICompleter {
	return newOpenAICompleter(ocrService, openai.NewClient(apiKey), config)
}

func newOpenAICompleter(ocrService ocr.Service, client chatClient, config CompletionConfig) *OpenAICompleter {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if config.OpenAIModel == "" {
		config.OpenAIModel = openai.GPT4oMini
	}
	return &OpenAICompleter{
		ocrService: ocrService,
		client:     client,
		config:     config,
		log:        logger.WithComponent("invoice-completion"),
	}
}

// completionItem is one line item in the model's answer.
type completionItem struct {
	Description string
	Quantity    string
	UnitPrice   string
}

// completionResponse is the model's answer with every value as text.
type completionResponse struct {
	InvoiceNumber   string
	InvoiceDate     string
	DueDate         string
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string
	Currency        string
	NetAmount       string
	TaxAmount       string
	TotalAmount     string
	LineItems       []completionItem
}

// Complete returns inv unchanged when nothing is missing. Otherwise it returns
// a copy with the missing fields filled from the model's answer.
func (s *OpenAICompleter) Complete(ctx context.Context, inv *ImportedInvoice, content []byte) (*ImportedInvoice, error) {
	const op = "Complete"

	missing := inv.MissingFields()
	if len(missing) == 0 {
		s.log.Debug().Msg("Invoice is already complete")
		return inv, nil
	}

	s.log.Info().
		Strs("missing_fields", missing).
		Msg("Found missing fields, proceeding with completion")

	ocrResult, err := s.ocrService.ExtractText(ctx, bytes.NewReader(content))
	if err != nil {
		return nil, WrapImportError(op, err, "OCR failed")
	}

	s.log.Info().
		Int("text_length", len(ocrResult.Text)).
		Float32("avg_confidence", ocrResult.Confidence).
		Msg("OCR extraction completed")

	answer, err := s.ask(ctx, ocrResult.Text, inv)
	if err != nil {
		return nil, WrapImportError(op, err, "")
	}

	completed := *inv
	completed.Confidence = make(map[string]float32, len(inv.Confidence))
	for k, v := range inv.Confidence {
		completed.Confidence[k] = v
	}
	s.merge(&completed, answer)

	s.log.Info().
		Str("invoice_number", completed.InvoiceNumber).
		Str("customer", completed.CustomerName).
		Int("line_items", len(completed.Items)).
		Strs("still_missing", completed.MissingFields()).
		Msg("Invoice completion finished")

	return &completed, nil
}

// ask sends the OCR text to the model, retrying on transport and parse
// failures.
func (s *OpenAICompleter) ask(ctx context.Context, ocrText string, partial *ImportedInvoice) (*completionResponse, error) {
	prompt := s.buildCompletionPrompt(ocrText, partial)

	s.log.Debug().
		Int("prompt_length", len(prompt)).
		Str("model", s.config.OpenAIModel).
		Float32("temperature", s.config.Temperature).
		Msg("Sending completion request")

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.OpenAIModel,
			Temperature: s.config.Temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt()},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens: 1500,
		})
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", s.config.MaxRetries).
				Msg("Completion request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := resp.Choices[0].Message.Content
		answer, err := parseCompletion(content)
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Str("response", content).
				Int("attempt", attempt).
				Msg("Failed to parse completion response, retrying")
			continue
		}
		return answer, nil
	}

	return nil, fmt.Errorf("%w: all %d attempts failed, last error: %v", ErrCompletionFailed, s.config.MaxRetries, lastErr)
}

func (s *OpenAICompleter) systemPrompt() string {
	return fmt.Sprintf(`You read invoices issued by %s to its customers and return their data as JSON.

The customer is the party the invoice is addressed to ("Bill To", "Invoice To"). Never report %s as the customer.

Return ONLY a JSON object with these keys:
  "invoice_number", "invoice_date" (YYYY-MM-DD), "due_date" (YYYY-MM-DD),
  "customer_name", "customer_email", "customer_address", "currency" (ISO code),
  "net_amount", "tax_amount", "total_amount",
  "line_items": [{"description", "quantity", "unit_price"}]
Amounts are plain decimals with a dot, without currency symbols. Use null for values that are not on the invoice.`,
		s.config.CompanyName, s.config.CompanyName)
}

func (s *OpenAICompleter) buildCompletionPrompt(ocrText string, partial *ImportedInvoice) string {
	var prompt strings.Builder

	prompt.WriteString("Extract the invoice data from this document.\n\n")

	prompt.WriteString("Already known:\n")
	if partial.InvoiceNumber != "" {
		fmt.Fprintf(&prompt, "Invoice number: %s\n", partial.InvoiceNumber)
	}
	if !partial.Date.IsZero() {
		fmt.Fprintf(&prompt, "Invoice date: %s\n", partial.Date.Format("2006-01-02"))
	}
	if partial.CustomerName != "" {
		fmt.Fprintf(&prompt, "Customer: %s\n", partial.CustomerName)
	}
	if !partial.TotalAmount.IsZero() {
		fmt.Fprintf(&prompt, "Total: %s %s\n", partial.TotalAmount.StringFixed(2), partial.Currency)
	}

	fmt.Fprintf(&prompt, "\nMissing: %s\n", strings.Join(partial.MissingFields(), ", "))

	prompt.WriteString("\nOCR text:\n")
	prompt.WriteString(ocrText)
	return prompt.String()
}

// parseCompletion decodes the model's JSON, accepting numbers or strings for
// every value.
func parseCompletion(content string) (*completionResponse, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	answer := &completionResponse{
		InvoiceNumber:   getString(raw, "invoice_number"),
		InvoiceDate:     getString(raw, "invoice_date"),
		DueDate:         getString(raw, "due_date"),
		CustomerName:    getString(raw, "customer_name"),
		CustomerEmail:   getString(raw, "customer_email"),
		CustomerAddress: getString(raw, "customer_address"),
		Currency:        getString(raw, "currency"),
		NetAmount:       getString(raw, "net_amount"),
		TaxAmount:       getString(raw, "tax_amount"),
		TotalAmount:     getString(raw, "total_amount"),
	}

	if items, ok := raw["line_items"].([]interface{}); ok {
		for _, entry := range items {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			answer.LineItems = append(answer.LineItems, completionItem{
				Description: getString(m, "description"),
				Quantity:    getString(m, "quantity"),
				UnitPrice:   getString(m, "unit_price"),
			})
		}
	}
	return answer, nil
}

// merge copies answer values into fields that are still empty.
func (s *OpenAICompleter) merge(inv *ImportedInvoice, answer *completionResponse) {
	if inv.InvoiceNumber == "" && answer.InvoiceNumber != "" {
		inv.InvoiceNumber = answer.InvoiceNumber
		inv.setConfidence(FieldInvoiceNumber, 0.9)
	}
	if inv.Date.IsZero() && answer.InvoiceDate != "" {
		if date, ok := parseDate(answer.InvoiceDate); ok {
			inv.Date = date
			inv.setConfidence(FieldInvoiceDate, 0.8)
		} else {
			s.log.Warn().Str("date", answer.InvoiceDate).Msg("Failed to parse invoice date")
		}
	}
	if inv.DueDate.IsZero() && answer.DueDate != "" {
		if date, ok := parseDate(answer.DueDate); ok {
			inv.DueDate = date
			inv.setConfidence("due_date", 0.8)
		} else {
			s.log.Warn().Str("date", answer.DueDate).Msg("Failed to parse due date")
		}
	}
	if inv.CustomerName == "" && answer.CustomerName != "" {
		inv.CustomerName = answer.CustomerName
		inv.setConfidence("receiver_name", 0.8)
	}
	if inv.CustomerEmail == "" {
		inv.CustomerEmail = answer.CustomerEmail
	}
	if inv.CustomerAddress == "" {
		inv.CustomerAddress = answer.CustomerAddress
	}
	if inv.Currency == "" && answer.Currency != "" {
		inv.Currency = models.NormalizeCurrency(answer.Currency)
	}

	s.mergeAmount(inv, &inv.NetAmount, "net_amount", answer.NetAmount)
	s.mergeAmount(inv, &inv.TaxAmount, "total_tax_amount", answer.TaxAmount)
	s.mergeAmount(inv, &inv.TotalAmount, "total_amount", answer.TotalAmount)

	if len(inv.usableItems()) == 0 {
		var items []ImportedItem
		for _, li := range answer.LineItems {
			if strings.TrimSpace(li.Description) == "" {
				continue
			}
			item := ImportedItem{Description: strings.TrimSpace(li.Description), Quantity: 1}
			if q, err := parseAmount(li.Quantity); err == nil && q.IsPositive() {
				item.Quantity, item.StatedQuantity = wholeQuantity(q)
			}
			if price, err := parseAmount(li.UnitPrice); err == nil {
				item.UnitPrice = price
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			inv.Items = items
			inv.setConfidence(FieldLineItems, 0.7)
		}
	}
}

// mergeAmount parses raw into dst when dst is still zero.
func (s *OpenAICompleter) mergeAmount(inv *ImportedInvoice, dst *decimal.Decimal, field, raw string) {
	if !dst.IsZero() || raw == "" {
		return
	}
	amount, err := parseAmount(raw)
	if err != nil {
		s.log.Warn().Err(err).Str("amount", raw).Str("field", field).Msg("Failed to parse amount")
		return
	}
	*dst = amount
	inv.setConfidence(field, 0.7)
}

// getString reads a string or number from a decoded JSON object.
func getString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
