package db

import "testing"

func TestSummarizeSQL(t *testing.T){
	cases := []struct{ in, op, table string }{
		{"SELECT * FROM `sites` WHERE id = ?", "SELECT", "sites"},
		{"insert into providers (name) values (?)", "INSERT", "providers"},
		{"UPDATE run_steps SET status = ? WHERE id = ?", "UPDATE", "run_steps"},
		{"DELETE FROM runs WHERE site_id = ?", "DELETE", "runs"},
	}
	for _, c := range cases {
		op, table := summarizeSQL(c.in)
		if op != c.op || table != c.table { t.Fatalf("summarizeSQL(%q)=%q,%q want %q,%q", c.in, op, table, c.op, c.table) }
	}
}

func TestCompactWS(t *testing.T){
	if got := compactWS("SELECT *\n\tFROM   sites"); got != "SELECT * FROM sites" {
		t.Fatalf("compactWS got %q", got)
	}
}
