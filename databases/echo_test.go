package databases

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/dkozlov/tableprimer/schema"
)

// stubDB records which calls reached it.
type stubDB struct {
	calls []string
}

func (s *stubDB) Ping(context.Context) error { s.calls = append(s.calls, "ping"); return nil }
func (s *stubDB) Exec(_ context.Context, _ string, _ ...any) error {
	s.calls = append(s.calls, "exec")
	return nil
}
func (s *stubDB) ExecBatch(_ context.Context, _ string, _ [][]any) error {
	s.calls = append(s.calls, "execbatch")
	return nil
}
func (s *stubDB) Query(_ context.Context, _ string, _ ...any) ([]map[string]any, error) {
	s.calls = append(s.calls, "query")
	return nil, nil
}
func (s *stubDB) Sample(_ context.Context, _ string, _ int) ([]map[string]any, error) {
	s.calls = append(s.calls, "sample")
	return nil, nil
}
func (s *stubDB) ListTables(context.Context) ([]string, error) {
	s.calls = append(s.calls, "listtables")
	return nil, nil
}
func (s *stubDB) Reflect(_ context.Context, table string) (*schema.Table, error) {
	s.calls = append(s.calls, "reflect")
	return schema.NewTable(table), nil
}
func (s *stubDB) DescribeTable(_ context.Context, table string) (*schema.TableDescription, error) {
	s.calls = append(s.calls, "describe")
	return &schema.TableDescription{Name: table}, nil
}
func (s *stubDB) Close() error { s.calls = append(s.calls, "close"); return nil }

func TestWithEchoLogsAndForwards(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	stub := &stubDB{}
	db := WithEcho(stub, log)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE t (n INTEGER)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.Query(ctx, "SELECT n FROM t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.Reflect(ctx, "t"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"exec", "query", "reflect"} {
		found := false
		for _, call := range stub.calls {
			if call == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("call %q never reached the wrapped database (calls: %v)", want, stub.calls)
		}
	}

	logged := buf.String()
	if !strings.Contains(logged, "CREATE TABLE t") || !strings.Contains(logged, "SELECT n FROM t") {
		t.Errorf("statements were not echoed:\n%s", logged)
	}
}
