package main

import (
	"testing"

	"ytbatch/internal/testsupport"
)

func TestDoctorHealthy(t *testing.T) {
	env := setupCLITestEnv(t)
	env.exec.Default = testsupport.Step{Lines: []string{"2026.03.01"}}

	out, _, err := runCLI(t, env, "", "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "== Checks ==")
	requireContains(t, out, "[OK] 2026.03.01")
	requireContains(t, out, env.configPath)
}

func TestDoctorReportsMissingYtdlp(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMissingYtdlp())

	out, _, err := runCLI(t, env, "", "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	requireContains(t, err.Error(), "1 required check failed")
	requireContains(t, out, "[ERROR]")
}
