package importer_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"invoicer/internal/importer"
	"invoicer/internal/ocr"
	"invoicer/internal/store"
)

// Example imports a legacy invoice into the local store.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := store.Open(store.Options{Driver: "sqlite", DSN: "invoicer.db"})
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	extractor, err := importer.NewDocumentAIExtractor(ctx, importer.DocumentAIConfig{
		ProjectID:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:        "eu",
		ProcessorID:     os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer extractor.Close()

	file, err := os.Open("legacy_invoice.pdf")
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer file.Close()

	result, err := importer.NewService(st, extractor, nil).Import(ctx, "legacy_invoice.pdf", file)
	if err != nil {
		var missing *importer.MissingFieldsError
		if errors.As(err, &missing) {
			log.Fatalf("Document lacks %v", missing.Fields)
		}
		log.Fatalf("Failed to import invoice: %v", err)
	}

	fmt.Printf("Invoice %s: %s owes %s, due %s\n",
		result.Invoice.InvoiceNumber,
		result.Invoice.CustomerName(),
		result.Invoice.TotalAmount().StringFixed(2),
		result.Invoice.DueDate().Format("2006-01-02"))

	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
}

// ExampleOpenAICompleter fills fields Document AI could not read.
func ExampleOpenAICompleter() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	vision, err := ocr.NewGoogleVisionService(ctx, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "")
	if err != nil {
		log.Fatal(err)
	}
	defer vision.Close()

	completer := importer.NewOpenAICompleter(vision, os.Getenv("OPENAI_API_KEY"), importer.CompletionConfig{
		CompanyName: "Acme GmbH",
		MaxRetries:  3,
	})

	content, err := os.ReadFile("scanned_invoice.png")
	if err != nil {
		log.Fatal(err)
	}

	partial := &importer.ImportedInvoice{CustomerName: "Globex Corp"}
	fmt.Printf("Missing before: %v\n", partial.MissingFields())

	completed, err := completer.Complete(ctx, partial, content)
	if err != nil {
		log.Fatalf("Completion failed: %v", err)
	}

	fmt.Printf("Missing after: %v\n", completed.MissingFields())
	fmt.Printf("Invoice number: %s (confidence %.0f%%)\n",
		completed.InvoiceNumber, completed.Confidence[importer.FieldInvoiceNumber]*100)
}
