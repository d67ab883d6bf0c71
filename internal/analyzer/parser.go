package analyzer

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/BerylCAtieno/web-accessibility-api/internal/config"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Parser turns the model's JSON reply into an AnalysisResult. Missing or
// mistyped fields default to empty values; only a reply that is not a JSON
// object is an error, and only under the strict policy.
type Parser struct {
	policy string
	logger *utils.Logger
}

func NewParser(policy string, logger *utils.Logger) *Parser {
	return &Parser{policy: policy, logger: logger}
}

type object map[string]json.RawMessage

func (p *Parser) Parse(raw string) (*models.AnalysisResult, error) {
	var root object
	if err := json.Unmarshal([]byte(utils.StripCodeFences(raw)), &root); err != nil || root == nil {
		if p.policy == config.ParsePolicyLenient {
			p.logger.Warn("model response is not a JSON object, returning it as explanation", "response", utils.Truncate(raw, 500))
			return models.NewErrorResult(raw), nil
		}
		return nil, utils.NewUpstreamFormatError("the model response is not valid JSON", err)
	}

	if msg, ok := root.string("error"); ok {
		return models.NewErrorResult(msg), nil
	}

	result := &models.AnalysisResult{
		Items:       []models.AnalysisItem{},
		Explanation: root.stringOr("Explanation"),
	}

	for _, rawIssue := range root.array("issues") {
		issue, ok := objectOf(rawIssue)
		if !ok {
			continue
		}
		result.Items = append(result.Items, models.AnalysisItem{
			Element:        issue.stringOr("Element"),
			Attributes:     attributesOf(issue.array("ElementAttributes")),
			Issue:          issue.stringOr("Issue"),
			Recommendation: issue.stringOr("Recommendation"),
			Severity:       models.NormalizeSeverity(issue.stringOr("Severity")),
			Source:         issue.stringOr("Source"),
			Details:        issue.stringOr("Details"),
		})
	}

	return result, nil
}

func attributesOf(raw []json.RawMessage) []models.ElementAttribute {
	attrs := make([]models.ElementAttribute, 0, len(raw))
	for _, r := range raw {
		a, ok := objectOf(r)
		if !ok {
			continue
		}
		attrs = append(attrs, models.ElementAttribute{
			Name:  a.stringOr("Name"),
			Value: a.stringOr("Value"),
		})
	}
	return attrs
}

func objectOf(raw json.RawMessage) (object, bool) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil || o == nil {
		return nil, false
	}
	return o, true
}

// lookup tries the exact key, then a case-insensitive match. Among several
// case variants the lexically smallest key wins.
func (o object) lookup(key string) (json.RawMessage, bool) {
	if v, ok := o[key]; ok {
		return v, true
	}
	for _, k := range slices.Sorted(maps.Keys(o)) {
		if strings.EqualFold(k, key) {
			return o[k], true
		}
	}
	return nil, false
}

func (o object) string(key string) (string, bool) {
	raw, ok := o.lookup(key)
	if !ok || !strings.HasPrefix(strings.TrimSpace(string(raw)), `"`) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (o object) stringOr(key string) string {
	s, _ := o.string(key)
	return s
}

func (o object) array(key string) []json.RawMessage {
	raw, ok := o.lookup(key)
	if !ok {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	return arr
}
