package governance

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
	"gopkg.in/yaml.v3"

	"github.com/monikerhub/resolver/internal/catalog"
)

// RenderBindingDiff renders a human-readable YAML diff of a changed
// SourceBinding for a single path, used as the Reason of the audit entry
// validated_replace writes for each binding_changed path (the entry's
// Before/After hold the raw bindings).
func RenderBindingDiff(path string, before, after *catalog.SourceBinding) (string, error) {
	beforeYAML, err := marshalBinding(before)
	if err != nil {
		return "", fmt.Errorf("governance: marshal before binding for %s: %w", path, err)
	}
	afterYAML, err := marshalBinding(after)
	if err != nil {
		return "", fmt.Errorf("governance: marshal after binding for %s: %w", path, err)
	}

	beforeInput, err := ytbxInput("before", beforeYAML)
	if err != nil {
		return "", err
	}
	afterInput, err := ytbxInput("after", afterYAML)
	if err != nil {
		return "", err
	}

	report, err := dyff.CompareInputFiles(beforeInput, afterInput)
	if err != nil {
		return "", fmt.Errorf("governance: compare binding YAML for %s: %w", path, err)
	}
	if len(report.Diffs) == 0 {
		return "", nil
	}

	return renderReport(report)
}

func marshalBinding(b *catalog.SourceBinding) ([]byte, error) {
	if b == nil {
		return []byte("null\n"), nil
	}
	return yaml.Marshal(b)
}

func ytbxInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}
	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, fmt.Errorf("governance: parse %s YAML: %w", name, err)
	}
	return ytbx.InputFile{Location: name, Documents: docs}, nil
}

func renderReport(report dyff.Report) (string, error) {
	var buf bytes.Buffer
	writer := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      true,
		OmitHeader:        true,
	}
	if err := writer.WriteReport(io.Writer(&buf)); err != nil {
		return "", fmt.Errorf("governance: render diff report: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
