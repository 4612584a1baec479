// Package prompt holds the fixed instruction templates handed to the model
// gateway. The templates request the canonical JSON record shape; the model's
// compliance is best-effort, which is why normalization runs a repair ladder.
package prompt

import "strings"

// maxContentChars bounds the document text interpolated into a prompt.
const maxContentChars = 12000

// TextSystem instructs the model for native-text analysis.
const TextSystem = "You are an expert at analyzing PDF documents and extracting structured data. " +
	"Your task is to analyze the document content and extract ONLY the requested JSON data structure. " +
	"DO NOT include any additional text, explanations, or markdown formatting in your response. " +
	"ONLY return valid JSON."

// VisionSystem instructs the model for rendered-page-image analysis.
const VisionSystem = "You are an expert at analyzing various types of business and legal documents and extracting structured data. " +
	"Your task is to analyze the content and return ONLY a valid JSON object representing the relevant extracted fields based on the document type. " +
	"DO NOT include any explanations, markdown, or extra text. " +
	"Return ONLY valid JSON."

// recordShape is the canonical schema shown to the model on the text path.
const recordShape = `{
  "document_type": "invoice/bill/receipt",
  "key_fields": {
    "document_number": "TEXT_OR_NUMBER",
    "date": "YYYY-MM-DD",
    "vendor_name": "TEXT",
    "vendor_address": "TEXT",
    "vendor_tax_id": "TEXT",
    "customer_name": "TEXT",
    "customer_address": "TEXT",
    "currency": "TEXT_CODE_USD_EUR_INR",
    "subtotal": 0.0,
    "tax_amount": 0.0,
    "total_amount": 0.0,
    "due_date": "YYYY-MM-DD",
    "payment_terms": "TEXT"
  },
  "items": [
    {
      "description": "TEXT",
      "quantity": 0.0,
      "unit_price": 0.0,
      "line_total": 0.0
    }
  ],
  "notes": "TEXT"
}`

// visionExamples shows the model example outputs for common document types.
// Examples beat abstract schemas for vision models: they anchor both the
// field names and the tables/items grouping.
const visionExamples = `analyze the image and use the following example JSON formats for output:

receipt:
{
  "document_type": "receipt",
  "key_fields": {
    "receipt_number": "RCPT-90432",
    "date": "2025-05-20",
    "store_name": "SuperMart",
    "store_address": "123 Elm Street, Springfield",
    "payment_method": "Credit Card",
    "total_paid": 45.99,
    "currency": "USD"
  },
  "tables": [
    {
      "table_name": "Items",
      "items": [
        {
          "description": "Bread",
          "quantity": 1,
          "unit_price": 1.99,
          "line_total": 1.99
        }
      ]
    }
  ],
  "notes": "Thank you for shopping with us!"
}

bill:
{
  "document_type": "bill",
  "key_fields": {
    "bill_number": "GRT1715",
    "date": "24/07/21",
    "vendor_name": "Hotel Amer Palace",
    "vendor_address": "Hosangabad Road, Ratanpur, Bhopal - 462046",
    "vendor_gstin": "23AADFH6301L1EN"
  },
  "tables": [
    {
      "table_name": "Food Items",
      "items": [
        {
          "description": "BUTTER TANDOOR",
          "quantity": 1,
          "amount": 45.00
        }
      ]
    },
    {
      "table_name": "Additional Charges",
      "items": [
        {
          "description": "Service Charge",
          "amount": 50.00
        }
      ]
    }
  ],
  "notes": ""
}`

// BuildText interpolates the page's text content into the text-analysis
// template.
func BuildText(content string) string {
	var b strings.Builder
	b.WriteString("Extract the following information from this document in strict JSON format:\n\n")
	b.WriteString(recordShape)
	b.WriteString("\n\nDocument content:\n")
	content = strings.TrimSpace(content)
	if len(content) > maxContentChars {
		b.WriteString(content[:maxContentChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(content)
	}
	return b.String()
}

// BuildVision returns the user text paired with an attached page image.
func BuildVision() string {
	return visionExamples
}
