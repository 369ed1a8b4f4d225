package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/aitail/aitail/internal/appinsights"
	"github.com/google/uuid"
)

// DemoSource emits synthetic Application Insights debug output: a stream of
// requests with their traces, dependencies, events and the occasional
// exception, interleaved with ordinary host log lines.
type DemoSource struct {
	Interval time.Duration
	Seed     int64
	// Limit stops the source after this many lines. Zero means unlimited.
	Limit int
}

func NewDemoSource(interval time.Duration, seed int64) *DemoSource {
	return &DemoSource{Interval: interval, Seed: seed}
}

func (d *DemoSource) Name() string {
	return "demo"
}

func (d *DemoSource) Run(ctx context.Context, emit func(string)) error {
	interval := d.Interval
	if interval <= 0 {
		interval = 400 * time.Millisecond
	}
	gen := newDemoGenerator(d.Seed)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	emitted := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, line := range gen.next(time.Now().UTC()) {
				emit(line)
				emitted++
				if d.Limit > 0 && emitted >= d.Limit {
					return nil
				}
			}
		}
	}
}

type demoRoute struct {
	method, path string
	dependency   string
	target       string
	event        string
	failRate     float64
}

var demoRoutes = []demoRoute{
	{method: "GET", path: "/api/orders", dependency: "SELECT * FROM Orders", target: "sql-orders", failRate: 0.05},
	{method: "POST", path: "/api/orders", dependency: "INSERT INTO Orders", target: "sql-orders", event: "OrderPlaced", failRate: 0.15},
	{method: "GET", path: "/api/catalog", dependency: "GET /products", target: "catalog.internal", failRate: 0.02},
	{method: "POST", path: "/api/checkout", dependency: "POST /charges", target: "payments.example.com", event: "CheckoutCompleted", failRate: 0.25},
	{method: "GET", path: "/health", failRate: 0},
}

var demoNoise = []string{
	"info: Microsoft.Hosting.Lifetime[14] Now listening on: http://localhost:5000",
	"info: Microsoft.AspNetCore.Hosting.Diagnostics[1] Request starting HTTP/1.1",
	"dbug: Microsoft.EntityFrameworkCore.Database.Command[20100] Executing DbCommand",
	"The thread 0x4a1c has exited with code 0 (0x0).",
	"Loaded 'System.Private.CoreLib.dll'. Skipped loading symbols.",
}

var demoExceptions = []struct{ typeName, message string }{
	{"System.InvalidOperationException", "Sequence contains no elements"},
	{"System.TimeoutException", "The operation has timed out."},
	{"Microsoft.Data.SqlClient.SqlException", "Transaction (Process ID 61) was deadlocked on lock resources"},
	{"System.Net.Http.HttpRequestException", "Response status code does not indicate success: 503 (Service Unavailable)."},
}

// demoGenerator turns one tick into the lines of one simulated request.
// Output depends only on the seed and the clock passed to next.
type demoGenerator struct {
	rng  *rand.Rand
	tick int
}

func newDemoGenerator(seed int64) *demoGenerator {
	return &demoGenerator{rng: rand.New(rand.NewSource(seed))}
}

type envelope struct {
	Name string            `json:"name"`
	Time string            `json:"time"`
	IKey string            `json:"iKey"`
	Tags map[string]string `json:"tags"`
	Data envelopeData      `json:"data"`
}

type envelopeData struct {
	BaseType string         `json:"baseType"`
	BaseData map[string]any `json:"baseData"`
}

func (g *demoGenerator) next(now time.Time) []string {
	g.tick++
	var lines []string

	if g.rng.Intn(3) == 0 {
		lines = append(lines, demoNoise[g.rng.Intn(len(demoNoise))])
	}

	route := demoRoutes[g.rng.Intn(len(demoRoutes))]
	opName := route.method + " " + route.path
	opID := g.operationID()
	tags := map[string]string{
		"ai.operation.id":   opID,
		"ai.operation.name": opName,
		"ai.cloud.role":     "demo-api",
	}
	failed := g.rng.Float64() < route.failRate

	lines = append(lines, g.line("AppTraces", "MessageData", now, tags, map[string]any{
		"ver":           2,
		"message":       fmt.Sprintf("Handling %s (tick %d)", opName, g.tick),
		"severityLevel": "Information",
	}))

	if route.dependency != "" {
		depType := "SQL"
		if route.target != "sql-orders" {
			depType = "Http"
		}
		resultCode := "0"
		if depType == "Http" {
			resultCode = "200"
			if failed {
				resultCode = "503"
			}
		} else if failed {
			resultCode = "1205"
		}
		lines = append(lines, g.line("AppDependencies", "RemoteDependencyData", now, tags, map[string]any{
			"ver":        2,
			"name":       route.dependency,
			"id":         g.shortID(),
			"type":       depType,
			"target":     route.target,
			"duration":   formatTimeSpan(g.duration(5, 400)),
			"success":    !failed,
			"resultCode": resultCode,
		}))
	}

	if failed {
		ex := demoExceptions[g.rng.Intn(len(demoExceptions))]
		lines = append(lines, g.line("AppExceptions", "ExceptionData", now, tags, map[string]any{
			"ver":           2,
			"severityLevel": "Error",
			"exceptions": []map[string]any{{
				"typeName":     ex.typeName,
				"message":      ex.message,
				"hasFullStack": true,
			}},
		}))
	} else if route.event != "" {
		lines = append(lines, g.line("AppEvents", "EventData", now, tags, map[string]any{
			"ver":        2,
			"name":       route.event,
			"properties": map[string]string{"tick": fmt.Sprint(g.tick)},
		}))
	}

	code := "200"
	if failed {
		code = "500"
	}
	lines = append(lines, g.line("AppRequests", "RequestData", now, tags, map[string]any{
		"ver":          2,
		"id":           g.shortID(),
		"name":         opName,
		"duration":     formatTimeSpan(g.duration(10, 900)),
		"success":      !failed,
		"responseCode": code,
		"url":          "http://localhost:5000" + route.path,
		"properties":   map[string]string{"DeveloperMode": "true"},
	}))

	return lines
}

func (g *demoGenerator) line(name, baseType string, now time.Time, tags map[string]string, base map[string]any) string {
	env := envelope{
		Name: name,
		Time: now.Format(time.RFC3339Nano),
		IKey: "00000000-0000-0000-0000-000000000000",
		Tags: tags,
		Data: envelopeData{BaseType: baseType, BaseData: base},
	}
	b, err := json.Marshal(env)
	if err != nil {
		// Only plain maps and strings go in; Marshal cannot fail.
		panic(err)
	}
	return appinsights.Marker + ": " + string(b)
}

func (g *demoGenerator) operationID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return fmt.Sprintf("%032x", g.rng.Uint64())
	}
	return id.String()
}

func (g *demoGenerator) shortID() string {
	return fmt.Sprintf("|%08x.", g.rng.Uint32())
}

func (g *demoGenerator) duration(minMs, maxMs int) time.Duration {
	return time.Duration(minMs+g.rng.Intn(maxMs-minMs)) * time.Millisecond
}

// formatTimeSpan renders d as hh:mm:ss.fffffff.
func formatTimeSpan(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%07d", h, m, s, d/100)
}
