package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Item", "Accuracy", "Tests"}
	rows := [][]string{
		{"し", "97.50%", "12"},
		{"ぴょ", "8.00%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Item Accuracy Tests" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "し     97.50%    12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "ぴょ    8.00%     3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableTrimsEmptyTrailingCells(t *testing.T) {
	lines := formatTable([]string{"A", "B"}, [][]string{{"x", ""}}, nil)
	if lines[1] != "x" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}
