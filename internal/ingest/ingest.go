// Package ingest extracts plain text from uploaded book files.
package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bookvision/bookvision/internal/types"
)

// SupportedExtensions lists the upload formats ingest can extract.
var SupportedExtensions = []string{".pdf", ".epub", ".txt"}

// Supported reports whether the file extension is an ingestable format.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Result contains the text extracted from an uploaded file.
type Result struct {
	Text      string
	Format    string // "pdf", "epub", "txt"
	CharCount int
}

// Extract reads the file at path and returns its plain text.
// Returns *types.IngestionError when the file is missing, an unsupported
// format, or yields no extractable text.
func Extract(path string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	filename := filepath.Base(path)

	if _, err := os.Stat(path); err != nil {
		return nil, &types.IngestionError{Filename: filename, Reason: "file not found", Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".txt":
		text, err = extractTXT(path)
	case ".pdf":
		text, err = extractPDF(path)
	case ".epub":
		text, err = extractEPUB(path)
	default:
		return nil, &types.IngestionError{Filename: filename, Reason: fmt.Sprintf("unsupported file type %s", ext)}
	}
	if err != nil {
		return nil, &types.IngestionError{Filename: filename, Reason: "text extraction failed", Err: err}
	}

	text = normalizeText(text)
	if text == "" {
		return nil, &types.IngestionError{Filename: filename, Reason: "no extractable text"}
	}

	logger.Debug("extracted text", "file", filename, "format", strings.TrimPrefix(ext, "."), "chars", len(text))

	return &Result{
		Text:      text,
		Format:    strings.TrimPrefix(ext, "."),
		CharCount: len(text),
	}, nil
}

func extractTXT(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func extractPDF(path string) (string, error) {
	// Validate structure first; ledongthuc/pdf panics on some malformed files.
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("invalid PDF: %w", err)
	}
	if pageCount == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	rf, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer rf.Close()

	var sb strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no extractable text found in PDF")
	}
	return sb.String(), nil
}

// epub container/package structures, just enough to walk the spine.
type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest []struct {
		ID   string `xml:"id,attr"`
		Href string `xml:"href,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

func extractEPUB(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	containerXML, err := readZipFile(files, "META-INF/container.xml")
	if err != nil {
		return "", fmt.Errorf("missing container.xml: %w", err)
	}

	var container epubContainer
	if err := xml.Unmarshal(containerXML, &container); err != nil {
		return "", fmt.Errorf("invalid container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 {
		return "", fmt.Errorf("container.xml declares no rootfile")
	}

	opfPath := container.Rootfiles[0].FullPath
	opfXML, err := readZipFile(files, opfPath)
	if err != nil {
		return "", fmt.Errorf("missing package document: %w", err)
	}

	var pkg epubPackage
	if err := xml.Unmarshal(opfXML, &pkg); err != nil {
		return "", fmt.Errorf("invalid package document: %w", err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefByID[item.ID] = item.Href
	}

	opfDir := filepath.Dir(opfPath)
	var sb strings.Builder
	for _, ref := range pkg.Spine {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		docPath := href
		if opfDir != "." {
			docPath = opfDir + "/" + href
		}
		doc, err := readZipFile(files, docPath)
		if err != nil {
			continue
		}
		sb.WriteString(stripMarkup(doc))
		sb.WriteString("\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("no extractable text found in EPUB spine")
	}
	return sb.String(), nil
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%s not in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	blockElements = strings.NewReplacer(
		"</p>", "\n", "</P>", "\n",
		"<br/>", "\n", "<br />", "\n", "<br>", "\n",
		"</h1>", "\n", "</h2>", "\n", "</h3>", "\n",
		"</div>", "\n", "</li>", "\n",
	)
	xmlEntities = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&nbsp;", " ",
		"&#160;", " ",
	)
)

// stripMarkup converts an XHTML document to plain text, preserving
// paragraph breaks.
func stripMarkup(src []byte) string {
	s := string(src)
	s = blockElements.Replace(s)
	s = tagPattern.ReplaceAllString(s, "")
	return xmlEntities.Replace(s)
}

// normalizeText collapses line endings, trims per-line whitespace, and
// squeezes runs of blank lines down to one.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
