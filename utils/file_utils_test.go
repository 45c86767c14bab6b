package utils

import (
	"strings"
	"testing"
)

func TestValidateProofFile(t *testing.T) {
	if err := ValidateProofFile("bill.pdf", 1024); err != nil {
		t.Errorf("pdf rejected: %v", err)
	}
	if err := ValidateProofFile("screenshot.PNG", 1024); err != nil {
		t.Errorf("uppercase extension rejected: %v", err)
	}
	if err := ValidateProofFile("malware.exe", 1024); err == nil {
		t.Error("exe accepted")
	}
	if err := ValidateProofFile("bill.pdf", maxFileSize+1); err == nil {
		t.Error("oversized file accepted")
	}
}

func TestCleanFilename(t *testing.T) {
	if got := cleanFilename("../../etc/passwd"); strings.Contains(got, "/") {
		t.Errorf("path traversal survived: %s", got)
	}
	if got := cleanFilename("my bill (1).pdf"); got != "mybill1.pdf" {
		t.Errorf("cleanFilename = %s", got)
	}
}
