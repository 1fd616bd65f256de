package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resume-ats/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"

	// ExtractedSuffix is appended to a storage key for the cached plain text.
	ExtractedSuffix = ".extracted.txt"
)

var (
	// ErrUnsupportedFileType is returned for anything other than pdf, doc and docx.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileNotFound is returned when the stored object is missing.
	ErrFileNotFound = errors.New("file not found")
)

// ExtractionError wraps a parser failure on a malformed or corrupt document.
type ExtractionError struct {
	Format string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause == nil {
		return "extract " + e.Format + " text"
	}
	return "extract " + e.Format + " text: " + e.Cause.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// ExtractText pulls text from a stored object and, when the store supports it,
// persists a derived .extracted.txt copy next to the original.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey string, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := resolveFormat(mimeType, fileName, nil); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return "", fmt.Errorf("extract text key=%s: %w", fileKey, ErrFileNotFound)
		}
		return "", fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	text, err := ExtractTextFromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}

	if saver, ok := store.(object.KeySaver); ok {
		if _, err := saver.SaveWithKey(ctx, fileKey+ExtractedSuffix, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
			return "", fmt.Errorf("extract text key=%s: save extracted: %w", fileKey, err)
		}
	}

	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory payload. Parser panics
// are converted into *ExtractionError.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format, err := resolveFormat(mimeType, fileName, data)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Format: formatName(format), Cause: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	switch format {
	case mimePDF:
		text, err = extractPDF(data)
	case mimeDOCX:
		text, err = extractDOCX(data)
	case mimeDOC:
		text, err = extractDOC(data)
	}
	if err != nil {
		return "", &ExtractionError{Format: formatName(format), Cause: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ExtractionError{Format: formatName(format), Cause: errors.New("document contains no extractable text")}
	}
	return text, nil
}

// resolveFormat prefers the file extension and falls back to the declared
// MIME type. data may be nil when only the name is known.
func resolveFormat(mimeType string, fileName string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".pdf":
		return mimePDF, nil
	case ".docx":
		return mimeDOCX, nil
	case ".doc":
		if data != nil && mapOOXMLFromZip(data) == mimeDOCX {
			return mimeDOCX, nil
		}
		return mimeDOC, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(fileName))
	}

	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF, mimeDOCX, mimeDOC:
		return clean, nil
	case "application/zip":
		if data == nil {
			return clean, nil
		}
		if mapOOXMLFromZip(data) == mimeDOCX {
			return mimeDOCX, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, clean)
}

func formatName(format string) string {
	switch format {
	case mimePDF:
		return "pdf"
	case mimeDOCX:
		return "docx"
	case mimeDOC:
		return "doc"
	default:
		return format
	}
}

// extractPDF concatenates the text of every page in page order.
func extractPDF(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if buf.Len() > 0 && text != "" {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// The docx reader insists on a relationships part; minimal writers omit it.
		raw, zipErr := readDocumentXML(data)
		if zipErr != nil {
			return "", err
		}
		return stripDocxXML(raw), nil
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func readDocumentXML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return "", errors.New("document.xml file not found")
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// extractDOC recovers readable runs from a legacy Word binary. Word 97+ keeps
// body text as UTF-16LE or cp1252 runs inside the OLE container.
func extractDOC(data []byte) (string, error) {
	if !bytes.HasPrefix(data, oleSignature) {
		return "", errors.New("not an OLE compound document")
	}
	const minRun = 8
	var lines []string
	lines = append(lines, utf16Runs(data, minRun)...)
	if len(lines) == 0 {
		lines = append(lines, asciiRuns(data, minRun)...)
	}
	return strings.Join(lines, "\n"), nil
}

func utf16Runs(data []byte, minRun int) []string {
	var out []string
	var run []uint16
	flush := func() {
		if len(run) >= minRun {
			s := strings.TrimSpace(string(utf16.Decode(run)))
			if hasWords(s) {
				out = append(out, s)
			}
		}
		run = run[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		r := rune(u)
		if u != 0 && (unicode.IsPrint(r) || r == '\t') && u < 0xD800 {
			run = append(run, u)
			continue
		}
		flush()
	}
	flush()
	return out
}

func asciiRuns(data []byte, minRun int) []string {
	var out []string
	start := -1
	for i, b := range data {
		printable := b == '\t' || (b >= 0x20 && b < 0x7F)
		if printable {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minRun {
			if s := strings.TrimSpace(string(data[start:i])); hasWords(s) {
				out = append(out, s)
			}
		}
		start = -1
	}
	if start >= 0 && len(data)-start >= minRun {
		if s := strings.TrimSpace(string(data[start:])); hasWords(s) {
			out = append(out, s)
		}
	}
	return out
}

// hasWords filters binary noise: a run must contain a space and be mostly letters.
func hasWords(s string) bool {
	if !strings.Contains(s, " ") {
		return false
	}
	letters := 0
	total := 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			letters++
		}
	}
	return total > 0 && letters*10 >= total*7
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch strings.ReplaceAll(f.Name, "\\", "/") {
		case "word/document.xml":
			return mimeDOCX
		case "xl/workbook.xml":
			return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		case "ppt/presentation.xml":
			return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
		}
	}
	return ""
}
