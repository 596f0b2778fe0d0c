package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicer/internal/logger"
	"invoicer/internal/ocr"
	"invoicer/pkg/models"
)

// MaxDocumentSizeBytes is the maximum document size for processing (20MB)
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// Extractor reads invoice fields from a document.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (*ImportedInvoice, error)
}

// DocumentAIConfig holds configuration for Google Document AI processing.
type DocumentAIConfig struct {
	ProjectID string

	// Location is the processor region, "us" or "eu".
	Location string

	ProcessorID string

	// ProcessorVersion pins a processor version; empty uses the default.
	ProcessorVersion string

	// Timeout bounds a single ProcessDocument call.
	Timeout time.Duration

	CredentialsFile string
	CredentialsJSON string
}

// processor is the subset of the Document AI client used here.
type processor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIExtractor implements Extractor with the Document AI invoice parser.
type DocumentAIExtractor struct {
	client processor
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates a Document AI client for config's region.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapImportError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	switch {
	case config.CredentialsJSON != "":
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	case config.CredentialsFile != "":
		clientOptions = append(clientOptions, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapImportError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return newDocumentAIExtractor(client, config), nil
}

func newDocumentAIExtractor(client processor, config DocumentAIConfig) *DocumentAIExtractor {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// Extract sends the document to the invoice parser and maps its entities.
func (p *DocumentAIExtractor) Extract(ctx context.Context, content []byte) (*ImportedInvoice, error) {
	const op = "Extract"

	if len(content) > MaxDocumentSizeBytes {
		return nil, WrapImportError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}
	mimeType := ocr.DetectType(content)
	if mimeType == "" {
		return nil, WrapImportError(op, ErrUnsupportedFormat, "expected a PDF or an image")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, p.handleProcessingError(op, err)
	}
	if resp.GetDocument() == nil {
		return nil, WrapImportError(op, ErrProcessingFailed, "no document in response")
	}

	return p.extractInvoiceData(resp.GetDocument()), nil
}

// processorName builds the full resource name of the configured processor.
func (p *DocumentAIExtractor) processorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
	if p.config.ProcessorVersion != "" {
		name += "/processorVersions/" + p.config.ProcessorVersion
	}
	return name
}

// handleProcessingError maps gRPC failures onto the package errors.
func (p *DocumentAIExtractor) handleProcessingError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapImportError(op, err, "processing timeout")
	}

	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return WrapImportError(op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case codes.ResourceExhausted:
		return WrapImportError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case codes.NotFound:
		return WrapImportError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case codes.InvalidArgument:
		return WrapImportError(op, ErrInvalidDocument, "document format not supported or corrupted")
	case codes.DeadlineExceeded:
		return WrapImportError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return WrapImportError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// extractInvoiceData converts Document AI entities to an ImportedInvoice.
func (p *DocumentAIExtractor) extractInvoiceData(doc *documentaipb.Document) *ImportedInvoice {
	inv := &ImportedInvoice{Confidence: make(map[string]float32)}

	for _, entity := range doc.GetEntities() {
		value := strings.TrimSpace(entity.GetMentionText())

		p.log.Debug().
			Str("entity_type", entity.GetType()).
			Str("value", value).
			Float32("confidence", entity.GetConfidence()).
			Msg("Processing Document AI entity")

		switch entity.GetType() {
		case "invoice_id":
			inv.InvoiceNumber = value
		case "invoice_date":
			if date, ok := entityDate(entity); ok {
				inv.Date = date
			}
		case "due_date":
			if date, ok := entityDate(entity); ok {
				inv.DueDate = date
			}
		case "receiver_name":
			inv.CustomerName = value
		case "receiver_email":
			inv.CustomerEmail = value
		case "receiver_address":
			inv.CustomerAddress = value
		case "currency":
			inv.Currency = models.NormalizeCurrency(value)
		case "net_amount":
			inv.NetAmount = p.entityMoney(entity)
		case "total_tax_amount":
			inv.TaxAmount = p.entityMoney(entity)
		case "total_amount":
			inv.TotalAmount = p.entityMoney(entity)
		case "line_item":
			if item, ok := p.lineItem(entity); ok {
				inv.Items = append(inv.Items, item)
			}
			continue
		default:
			continue
		}
		inv.Confidence[entity.GetType()] = entity.GetConfidence()
	}

	p.log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Str("customer", inv.CustomerName).
		Int("line_items", len(inv.Items)).
		Str("total_amount", inv.TotalAmount.String()).
		Str("currency", inv.Currency).
		Msg("Document AI extraction completed")

	return inv
}

// lineItem reads the description, quantity and unit price properties of a
// line_item entity.
func (p *DocumentAIExtractor) lineItem(entity *documentaipb.Document_Entity) (ImportedItem, bool) {
	item := ImportedItem{Quantity: 1}
	quantity := decimal.NewFromInt(1)

	for _, prop := range entity.GetProperties() {
		value := strings.TrimSpace(prop.GetMentionText())
		switch prop.GetType() {
		case "line_item/description":
			item.Description = value
		case "line_item/quantity":
			if q, err := parseAmount(value); err == nil && q.IsPositive() {
				quantity = q
			}
		case "line_item/unit_price":
			item.UnitPrice = p.entityMoney(prop)
		case "line_item/amount":
			item.Amount = p.entityMoney(prop)
		}
	}

	if item.Description == "" {
		item.Description = strings.TrimSpace(entity.GetMentionText())
	}
	if item.Description == "" {
		return item, false
	}

	item.Quantity, item.StatedQuantity = wholeQuantity(quantity)
	if item.UnitPrice.IsZero() && !item.Amount.IsZero() {
		item.UnitPrice = item.Amount.Div(decimal.NewFromInt(int64(item.Quantity)))
	}
	return item, true
}

// entityDate prefers the normalized date and falls back to parsing the text.
func entityDate(entity *documentaipb.Document_Entity) (time.Time, bool) {
	if d := entity.GetNormalizedValue().GetDateValue(); d != nil && d.GetYear() > 0 {
		return time.Date(int(d.GetYear()), time.Month(d.GetMonth()), int(d.GetDay()), 0, 0, 0, 0, time.UTC), true
	}
	return parseDate(entity.GetMentionText())
}

// entityMoney prefers the normalized money value and falls back to parsing
// the text. Unreadable amounts are zero.
func (p *DocumentAIExtractor) entityMoney(entity *documentaipb.Document_Entity) decimal.Decimal {
	if m := entity.GetNormalizedValue().GetMoneyValue(); m != nil {
		return decimal.NewFromInt(m.GetUnits()).Add(decimal.New(int64(m.GetNanos()), -9))
	}

	amount, err := parseAmount(entity.GetMentionText())
	if err != nil {
		p.log.Warn().
			Err(err).
			Str("entity_type", entity.GetType()).
			Str("raw_value", entity.GetMentionText()).
			Msg("Failed to extract amount from Document AI")
		return decimal.Zero
	}
	return amount
}

// Close closes the underlying Document AI client.
func (p *DocumentAIExtractor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
