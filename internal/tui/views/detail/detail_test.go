package detail

import (
	"strings"
	"testing"
	"time"

	"github.com/aitail/aitail/internal/telemetry"
)

func sampleRecord() *telemetry.Telemetry {
	ok := false
	return telemetry.New(telemetry.RemoteDependency, telemetry.Fields{
		Timestamp:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Name:          "AppDependencies",
		Summary:       "SQL db01: SELECT a | b",
		OperationID:   "op-1",
		OperationName: "GET /orders",
		ResponseCode:  "1205",
		Success:       &ok,
		Duration:      1500 * time.Millisecond,
		Properties:    map[string]string{"zeta": "1", "alpha": "2"},
		Raw:           `{"name":"AppDependencies","data":{"baseType":"RemoteDependencyData"}}`,
	})
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRecord())

	for _, want := range []string{
		"# RemoteDependency: SQL db01: SELECT a \\| b",
		"| Operation ID | op-1 |",
		"| Success | false |",
		"| Duration | 1.5s |",
		"## Properties",
		"```json",
		`"baseType": "RemoteDependencyData"`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Index(md, "| alpha |") > strings.Index(md, "| zeta |") {
		t.Error("properties not sorted")
	}
}

func TestMarkdownOmitsEmptyFields(t *testing.T) {
	md := Markdown(telemetry.New(telemetry.Event, telemetry.Fields{Summary: "Checkout"}))
	for _, absent := range []string{"Severity", "Success", "## Properties", "## Raw"} {
		if strings.Contains(md, absent) {
			t.Errorf("markdown should not contain %q\n%s", absent, md)
		}
	}
}

func TestShowAndView(t *testing.T) {
	m := New("notty")
	if m.View() != "" {
		t.Error("empty model should render nothing")
	}
	m.Show(sampleRecord(), 80, 40)
	v := m.View()
	if !strings.Contains(v, "op-1") {
		t.Errorf("view missing operation id:\n%s", v)
	}
	if !strings.Contains(v, "esc:close") {
		t.Error("view missing footer")
	}
}
