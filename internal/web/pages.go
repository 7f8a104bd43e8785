package web

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wolfman30/leadintake/internal/leads"
)

// Field is one input on a landing-page lead form.
type Field struct {
	Name        string
	Label       string
	Type        string
	Placeholder string
	Required    bool
}

// Page is a landing page with its lead form and intake mapping.
type Page struct {
	Slug       string
	Title      string
	Headline   string
	Subhead    string
	LeadSource string
	Fields     []Field

	// build turns the posted form into an intake request.
	build func(form url.Values) *leads.CreateLeadRequest
}

// Source is the intake source tag for the page.
func (p *Page) Source() string { return p.Slug }

// Request maps posted form values to a lead request for this page.
func (p *Page) Request(form url.Values) *leads.CreateLeadRequest {
	req := p.build(form)
	req.Source = p.Slug
	req.LeadSource = p.LeadSource
	if req.Raw == nil {
		req.Raw = map[string]any{}
	}
	req.Raw["path"] = "/pages/" + p.Slug
	return req
}

// Catalog holds the landing pages by slug.
type Catalog struct {
	pages map[string]*Page
	order []string
}

// Lookup returns the page for slug.
func (c *Catalog) Lookup(slug string) (*Page, bool) {
	p, ok := c.pages[slug]
	return p, ok
}

// Slugs lists the pages in registration order.
func (c *Catalog) Slugs() []string {
	return append([]string(nil), c.order...)
}

func newCatalog(pages ...*Page) *Catalog {
	c := &Catalog{pages: make(map[string]*Page, len(pages))}
	for _, p := range pages {
		c.pages[p.Slug] = p
		c.order = append(c.order, p.Slug)
	}
	return c
}

func val(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

// rawOf copies the named form fields into a raw bag, skipping blanks.
func rawOf(form url.Values, keys ...string) map[string]any {
	raw := make(map[string]any, len(keys))
	for _, k := range keys {
		if v := val(form, k); v != "" {
			raw[k] = v
		}
	}
	return raw
}

var (
	fieldName    = Field{Name: "name", Label: "Your Name", Type: "text", Placeholder: "John Doe", Required: true}
	fieldEmail   = Field{Name: "email", Label: "Email", Type: "email", Placeholder: "you@company.com", Required: true}
	fieldPhone   = Field{Name: "phone", Label: "Phone", Type: "tel", Placeholder: "+91 98765 43210"}
	fieldMessage = Field{Name: "message", Label: "Project details", Type: "textarea", Placeholder: "Tell us what you need"}
	fieldStore   = Field{Name: "storeUrl", Label: "Store URL", Type: "url", Placeholder: "https://yourstore.myshopify.com"}
)

// DefaultCatalog is the set of landing pages the site serves.
func DefaultCatalog() *Catalog {
	return newCatalog(
		&Page{
			Slug:       "ai-chatbot-development",
			Title:      "AI Chatbot Development",
			Headline:   "Request Your Free Consultation",
			Subhead:    "Tell us about your business and we'll show you how AI chatbots can transform your customer engagement",
			LeadSource: "Website - AI Chatbot Development Landing",
			Fields: []Field{
				fieldName,
				{Name: "businessName", Label: "Business Name", Type: "text", Placeholder: "Your Company Pvt. Ltd.", Required: true},
				{Name: "website", Label: "Website", Type: "url", Placeholder: "https://yourcompany.com"},
				{Name: "whatsapp", Label: "WhatsApp Number", Type: "tel", Placeholder: "+91 98765 43210", Required: true},
				{Name: "goal", Label: "What should the chatbot do?", Type: "textarea", Placeholder: "Answer FAQs, book demos, qualify leads"},
			},
			build: func(form url.Values) *leads.CreateLeadRequest {
				return &leads.CreateLeadRequest{
					Name:    val(form, "name"),
					Phone:   val(form, "whatsapp"),
					Message: fmt.Sprintf("Website: %s, Goal: %s", val(form, "website"), val(form, "goal")),
					Raw:     rawOf(form, "businessName", "website", "whatsapp", "goal"),
				}
			},
		},
		&Page{
			Slug:       "nextjs-development",
			Title:      "Next.js Development",
			Headline:   "Start Your Next.js Project",
			Subhead:    "Share a few details and we'll come back with a plan and an estimate",
			LeadSource: "Website - Next.js Landing",
			Fields: []Field{
				fieldName, fieldEmail, fieldPhone,
				{Name: "company", Label: "Company", Type: "text"},
				{Name: "projectType", Label: "Project Type", Type: "text", Placeholder: "Marketing site, SaaS, e-commerce"},
				fieldMessage,
			},
			build: func(form url.Values) *leads.CreateLeadRequest {
				return &leads.CreateLeadRequest{
					Name:    val(form, "name"),
					Email:   val(form, "email"),
					Phone:   val(form, "phone"),
					Message: val(form, "message"),
					Raw:     rawOf(form, "company", "projectType"),
				}
			},
		},
		&Page{
			Slug:       "seo-audit",
			Title:      "SEO Audit",
			Headline:   "Get Your Full SEO Audit",
			Subhead:    "We'll review your site and send a prioritized action plan",
			LeadSource: "SEO Audit Widget",
			Fields: []Field{
				{Name: "url", Label: "Website URL", Type: "url", Placeholder: "https://yourwebsite.com", Required: true},
				fieldEmail, fieldPhone,
				{Name: "goal", Label: "Main goal", Type: "text", Placeholder: "more-leads"},
			},
			build: func(form url.Values) *leads.CreateLeadRequest {
				return &leads.CreateLeadRequest{
					Email:   val(form, "email"),
					Phone:   val(form, "phone"),
					Message: fmt.Sprintf("SEO Audit Request - URL: %s, Goal: %s", val(form, "url"), val(form, "goal")),
					Raw:     rawOf(form, "url", "goal"),
				}
			},
		},
		&Page{
			Slug:       "shopify-headless-migration",
			Title:      "Shopify Headless Migration",
			Headline:   "Plan Your Headless Migration",
			Subhead:    "Tell us about your store and we'll map out the move to a headless storefront",
			LeadSource: "Website - Shopify Headless Migration",
			Fields:     []Field{fieldName, fieldEmail, fieldPhone, fieldStore, fieldMessage},
			build: func(form url.Values) *leads.CreateLeadRequest {
				return &leads.CreateLeadRequest{
					Name:    val(form, "name"),
					Email:   val(form, "email"),
					Phone:   val(form, "phone"),
					Message: val(form, "message"),
					Raw:     rawOf(form, "storeUrl"),
				}
			},
		},
		&Page{
			Slug:       "shopify-product-page",
			Title:      "Shopify Product Page Customization",
			Headline:   "Upgrade Your Product Pages",
			Subhead:    "Send us a product link and what you want changed",
			LeadSource: "Website - Shopify Product Page",
			Fields: []Field{
				fieldName, fieldEmail, fieldStore,
				{Name: "productUrl", Label: "Product URL", Type: "url"},
				fieldMessage,
			},
			build: func(form url.Values) *leads.CreateLeadRequest {
				return &leads.CreateLeadRequest{
					Name:    val(form, "name"),
					Email:   val(form, "email"),
					Message: val(form, "message"),
					Raw:     rawOf(form, "storeUrl", "productUrl"),
				}
			},
		},
		&Page{
			Slug:       "business-website",
			Title:      "Business Website",
			Headline:   "Get a Website That Brings Customers",
			Subhead:    "Tell us about your business and budget",
			LeadSource: leads.DefaultLeadSource,
			Fields: []Field{
				fieldName, fieldEmail, fieldPhone,
				{Name: "city", Label: "City", Type: "text"},
				{Name: "businessType", Label: "Business Type", Type: "text"},
				{Name: "budget", Label: "Budget", Type: "text"},
				fieldMessage,
			},
			build: func(form url.Values) *leads.CreateLeadRequest {
				return &leads.CreateLeadRequest{
					Name:    val(form, "name"),
					Email:   val(form, "email"),
					Phone:   val(form, "phone"),
					Message: val(form, "message"),
					Raw:     rawOf(form, "city", "businessType", "budget"),
				}
			},
		},
	)
}
