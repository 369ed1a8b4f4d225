// Package appinsights recognises Application Insights telemetry in the debug
// output of a .NET process.
//
// The SDK writes one line per item when a debugger is attached:
//
//	Application Insights Telemetry: {"name":"AppRequests","time":...,"data":{...}}
//	Application Insights Telemetry (unconfigured): {...}
//
// Everything else on the output stream is ignored.
package appinsights

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aitail/aitail/internal/telemetry"
	"github.com/tidwall/gjson"
)

// Marker prefixes every telemetry line in the SDK's debug output.
const Marker = "Application Insights Telemetry"

// ErrMalformed is returned for marker lines whose payload is not valid JSON.
var ErrMalformed = errors.New("malformed telemetry payload")

var baseTypes = map[string]telemetry.Type{
	"MessageData":          telemetry.Message,
	"RequestData":          telemetry.Request,
	"ExceptionData":        telemetry.Exception,
	"EventData":            telemetry.Event,
	"RemoteDependencyData": telemetry.RemoteDependency,
}

// Envelope name suffixes, classic ("Microsoft.ApplicationInsights.Dev.Request")
// and workspace-based ("AppRequests").
var nameSuffixes = []struct {
	suffix string
	typ    telemetry.Type
}{
	{".Message", telemetry.Message},
	{"AppTraces", telemetry.Message},
	{".Request", telemetry.Request},
	{"AppRequests", telemetry.Request},
	{".Exception", telemetry.Exception},
	{"AppExceptions", telemetry.Exception},
	{".Event", telemetry.Event},
	{"AppEvents", telemetry.Event},
	{".RemoteDependency", telemetry.RemoteDependency},
	{"AppDependencies", telemetry.RemoteDependency},
}

// Parser implements telemetry.Parser for SDK debug output.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns nil, nil for lines that carry no telemetry or carry an item
// type outside the five classified ones (metrics, page views, ...).
func (p *Parser) Parse(line string) (*telemetry.Telemetry, error) {
	payload, ok := extractPayload(line)
	if !ok {
		return nil, nil
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, abbreviate(payload, 80))
	}

	env := gjson.Parse(payload)
	typ, ok := classify(env)
	if !ok {
		return nil, nil
	}

	base := env.Get("data.baseData")
	fields := telemetry.Fields{
		Name:          env.Get("name").String(),
		OperationID:   env.Get(`tags.ai\.operation\.id`).String(),
		OperationName: env.Get(`tags.ai\.operation\.name`).String(),
		Raw:           payload,
	}
	if ts := env.Get("time").String(); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			fields.Timestamp = t
		}
	}
	if props := base.Get("properties"); props.IsObject() {
		fields.Properties = make(map[string]string)
		props.ForEach(func(k, v gjson.Result) bool {
			fields.Properties[k.String()] = v.String()
			return true
		})
	}
	if d := base.Get("duration"); d.Exists() {
		if dur, err := ParseTimeSpan(d.String()); err == nil {
			fields.Duration = dur
		}
	}
	if s := base.Get("success"); s.Exists() {
		v := s.Bool()
		fields.Success = &v
	}

	switch typ {
	case telemetry.Message:
		fields.Summary = base.Get("message").String()
		fields.Severity = base.Get("severityLevel").String()
	case telemetry.Request:
		fields.ResponseCode = base.Get("responseCode").String()
		fields.Summary = joinNonEmpty(" ", base.Get("name").String(), fields.ResponseCode)
	case telemetry.Exception:
		ex := base.Get("exceptions.0")
		fields.Severity = base.Get("severityLevel").String()
		fields.Summary = joinNonEmpty(": ", ex.Get("typeName").String(), ex.Get("message").String())
	case telemetry.Event:
		fields.Summary = base.Get("name").String()
	case telemetry.RemoteDependency:
		fields.ResponseCode = base.Get("resultCode").String()
		target := joinNonEmpty(" ", base.Get("type").String(), base.Get("target").String())
		fields.Summary = joinNonEmpty(": ", target, base.Get("name").String())
	}
	if fields.Summary == "" {
		fields.Summary = fields.Name
	}

	return telemetry.New(typ, fields), nil
}

// extractPayload returns the JSON object following the marker.
func extractPayload(line string) (string, bool) {
	i := strings.Index(line, Marker)
	if i < 0 {
		return "", false
	}
	rest := line[i+len(Marker):]
	j := strings.IndexByte(rest, '{')
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[j:]), true
}

func classify(env gjson.Result) (telemetry.Type, bool) {
	if bt := env.Get("data.baseType").String(); bt != "" {
		typ, ok := baseTypes[bt]
		return typ, ok
	}
	name := env.Get("name").String()
	for _, s := range nameSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.typ, true
		}
	}
	return 0, false
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
