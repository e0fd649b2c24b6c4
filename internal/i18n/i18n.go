// Package i18n is the bilingual (en/he) message catalog spec.md §7 names:
// chat replies are looked up by key and language, with "{param}"-style
// placeholders substituted in. Grounded on the teacher's own
// yaml.v3-backed config loading (internal/config.Load unmarshals viper's
// merged config with the same library), generalized to a flat
// key→language→template dictionary instead of a nested settings tree.
package i18n

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Language is one of the catalog's two supported locales.
type Language string

const (
	English Language = "en"
	Hebrew  Language = "he"
)

// DefaultLanguage is used when a tenant's configured language is unset or
// unrecognized.
const DefaultLanguage = English

// Catalog holds every message template, keyed by message key then language.
type Catalog struct {
	messages map[string]map[Language]string
}

// Load parses a YAML document of the form:
//
//	key:
//	  en: "template with {param}"
//	  he: "תבנית עם {param}"
func Load(yamlDoc []byte) (*Catalog, error) {
	raw := map[string]map[string]string{}
	if err := yaml.Unmarshal(yamlDoc, &raw); err != nil {
		return nil, fmt.Errorf("parse i18n catalog: %w", err)
	}
	messages := make(map[string]map[Language]string, len(raw))
	for key, byLang := range raw {
		entry := make(map[Language]string, len(byLang))
		for lang, template := range byLang {
			entry[Language(lang)] = template
		}
		messages[key] = entry
	}
	return &Catalog{messages: messages}, nil
}

// NewFromDefaults builds a Catalog from the built-in message set, used when
// no external catalog file is configured.
func NewFromDefaults() *Catalog {
	messages := make(map[string]map[Language]string, len(defaultMessages))
	for key, byLang := range defaultMessages {
		messages[key] = byLang
	}
	return &Catalog{messages: messages}
}

// T looks up key in the given language (falling back to DefaultLanguage,
// then to the key itself if neither is present) and substitutes any
// "{param}" placeholders from params.
func (c *Catalog) T(lang Language, key string, params map[string]string) string {
	template, ok := c.messages[key][lang]
	if !ok {
		template, ok = c.messages[key][DefaultLanguage]
	}
	if !ok {
		return key
	}
	for name, value := range params {
		template = strings.ReplaceAll(template, "{"+name+"}", value)
	}
	return template
}

// defaultMessages is the built-in catalog covering onboarding and
// invoice-generation prompts and replies.
var defaultMessages = map[string]map[Language]string{
	"onboarding.welcome": {
		English: "Welcome! Let's set up your business. What language do you prefer: en or he?",
		Hebrew:  "ברוכים הבאים! בואו נגדיר את העסק שלכם. באיזו שפה תרצו להמשיך: en או he?",
	},
	"onboarding.business_name": {
		English: "What is your business name?",
		Hebrew:  "מה שם העסק שלכם?",
	},
	"onboarding.owner_details": {
		English: "Send owner details as: name, tax id, phone, email",
		Hebrew:  "שלחו את פרטי הבעלים: שם, ח.פ./ע.מ., טלפון, אימייל",
	},
	"onboarding.address": {
		English: "What is your business address?",
		Hebrew:  "מה כתובת העסק?",
	},
	"onboarding.tax_status": {
		English: "What is your tax status: licensed_dealer, exempt_dealer, or company?",
		Hebrew:  "מה הסטטוס המיסוי שלכם: licensed_dealer, exempt_dealer או company?",
	},
	"onboarding.logo": {
		English: "Send your business logo, or reply /skip.",
		Hebrew:  "שלחו את לוגו העסק, או הגיבו /skip.",
	},
	"onboarding.sheet": {
		English: "Share your invoices spreadsheet so we can verify access.",
		Hebrew:  "שתפו את גיליון החשבוניות כדי שנוכל לוודא גישה.",
	},
	"onboarding.counter": {
		English: "What invoice number should we start from? Reply a number, or \"start-from-1\".",
		Hebrew:  "ממספר חשבונית מה להתחיל? הגיבו מספר, או \"start-from-1\".",
	},
	"onboarding.complete": {
		English: "Setup complete! You can now send invoices for processing.",
		Hebrew:  "ההגדרה הושלמה! כעת תוכלו לשלוח חשבוניות לעיבוד.",
	},
	"onboarding.invite_invalid": {
		English: "That invite code is not valid.",
		Hebrew:  "קוד ההזמנה אינו תקף.",
	},
	"onboarding.invite_suppressed": {
		English: "Too many invalid attempts. Please contact support.",
		Hebrew:  "יותר מדי ניסיונות שגויים. אנא פנו לתמיכה.",
	},
	"invoicegen.select_type": {
		English: "What type of document? Reply invoice or invoice_receipt.",
		Hebrew:  "איזה סוג מסמך? הגיבו invoice או invoice_receipt.",
	},
	"invoicegen.awaiting_details": {
		English: "Send: customer name, amount, description[, customer tax id]",
		Hebrew:  "שלחו: שם לקוח, סכום, תיאור[, ח.פ./ע.מ. לקוח]",
	},
	"invoicegen.awaiting_payment": {
		English: "Select a payment method: cash, check, bank_transfer, credit_card, other.",
		Hebrew:  "בחרו אמצעי תשלום: cash, check, bank_transfer, credit_card, other.",
	},
	"invoicegen.confirm": {
		English: "Confirm: {documentType} for {customerName}, {amount}, \"{description}\". Reply /confirm or /cancel.",
		Hebrew:  "אישור: {documentType} עבור {customerName}, {amount}, \"{description}\". הגיבו /confirm או /cancel.",
	},
	"invoicegen.produced": {
		English: "Invoice {invoiceNumber} generated: {url}",
		Hebrew:  "חשבונית {invoiceNumber} הופקה: {url}",
	},
}
