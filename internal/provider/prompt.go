package provider

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.json
var profileSchema string

const systemPrompt = `You are a B2B firmographics analyst. Given a trade-show badge scan, identify the
company the person works for and describe it. Answer with a single JSON object and nothing else.

Fields: name, domain, industry, description, size (Small, Medium, Large or Enterprise),
employeeCount (integer), revenue (annual USD, number), headquarters ("City, Region, Country"),
technologies (array of strings), businessModel, keyProducts (array of strings), targetMarket,
fundingStage, confidence (0-100, how sure you are of the facts above).

Use null for anything you do not know. Do not guess numbers you cannot support.`

// userPrompt renders the identity as the per-call question.
func userPrompt(id Identity) string {
	var b strings.Builder
	b.WriteString("Badge scan:\n")
	fmt.Fprintf(&b, "- Company: %s\n", id.Company)
	if id.Name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", id.Name)
	}
	if id.Title != "" {
		fmt.Fprintf(&b, "- Title: %s\n", id.Title)
	}
	if d := id.EmailDomain(); d != "" {
		fmt.Fprintf(&b, "- Email domain: %s\n", d)
	}
	return b.String()
}
