package parse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoPDFToText is returned when the pdftotext binary is not on PATH.
var ErrNoPDFToText = errors.New("parse: pdftotext is required but was not found on PATH")

// ExtractText runs `pdftotext -layout` on the PDF and returns its text.
func ExtractText(ctx context.Context, pdfPath string) (string, error) {
	bin, err := exec.LookPath("pdftotext")
	if err != nil {
		return "", ErrNoPDFToText
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", pdfPath, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("parse: pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.ToValidUTF8(stdout.String(), "�"), nil
}
