package provider

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/lead-engine/internal/model"
)

var compiledSchema = jsonschema.MustCompileString("profile.json", profileSchema)

// wireProfile is the JSON shape providers are asked to return.
type wireProfile struct {
	Name          string   `json:"name"`
	Domain        *string  `json:"domain"`
	Industry      *string  `json:"industry"`
	Description   *string  `json:"description"`
	Size          *string  `json:"size"`
	EmployeeCount *float64 `json:"employeeCount"`
	Revenue       *float64 `json:"revenue"`
	Headquarters  *string  `json:"headquarters"`
	Technologies  []string `json:"technologies"`
	BusinessModel *string  `json:"businessModel"`
	KeyProducts   []string `json:"keyProducts"`
	TargetMarket  *string  `json:"targetMarket"`
	FundingStage  *string  `json:"fundingStage"`
	Confidence    *float64 `json:"confidence"`
}

// ParseProfile turns a raw LLM answer into a provider result. Code fences and
// surrounding prose are tolerated; anything that does not validate against the
// profile schema is ErrMalformedResponse.
func ParseProfile(providerName, raw string) (*Result, error) {
	doc, ok := extractObject(raw)
	if !ok {
		return nil, eris.Wrapf(ErrMalformedResponse, "%s: no JSON object in response", providerName)
	}

	var generic any
	if err := json.Unmarshal([]byte(doc), &generic); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "%s: decode: %v", providerName, err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "%s: schema: %v", providerName, err)
	}

	var w wireProfile
	if err := json.Unmarshal([]byte(doc), &w); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "%s: decode profile: %v", providerName, err)
	}

	conf := clampConfidence(w.Confidence)
	company := model.EnrichedCompany{
		Name:          strings.TrimSpace(w.Name),
		Domain:        normalizeDomain(str(w.Domain)),
		Industry:      str(w.Industry),
		Description:   str(w.Description),
		Size:          parseSize(str(w.Size)),
		Headquarters:  str(w.Headquarters),
		Technologies:  cleanList(w.Technologies),
		BusinessModel: str(w.BusinessModel),
		KeyProducts:   cleanList(w.KeyProducts),
		TargetMarket:  str(w.TargetMarket),
		FundingStage:  str(w.FundingStage),
		Confidence:    model.Float(conf),
	}
	if w.EmployeeCount != nil {
		company.EmployeeCount = model.Int(int(math.Round(*w.EmployeeCount)))
	}
	if w.Revenue != nil {
		company.Revenue = model.Float(*w.Revenue)
	}
	if company.Size == "" && company.EmployeeCount != nil {
		company.Size = model.SizeForEmployees(*company.EmployeeCount)
	}

	return &Result{Provider: providerName, Company: company, Confidence: conf}, nil
}

// extractObject returns the first balanced JSON object in s.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func clampConfidence(c *float64) float64 {
	if c == nil || math.IsNaN(*c) {
		return 0
	}
	return math.Max(0, math.Min(100, *c))
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseSize(s string) model.SizeClass {
	for _, c := range model.SizeClasses {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return ""
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}
