package report

import "fmt"

// TestReportData is an attachment of a test result. Implementations are
// limited to the variants in this package; each exposes an accessor no other
// variant has, so templates can tell them apart.
type TestReportData interface {
	Title() string
	reportData()
}

// Kind names a TestReportData variant.
type Kind string

const (
	KindMonoText   Kind = "monoText"
	KindHTML       Kind = "html"
	KindTable      Kind = "table"
	KindImage      Kind = "image"
	KindVideo      Kind = "video"
	KindLinkedFile Kind = "linkedFile"
)

type titled struct {
	title string
}

func (t titled) Title() string { return t.title }
func (titled) reportData() {}

// MonoTextType classifies monospaced text attachments.
type MonoTextType string

const (
	MonoTextStdout MonoTextType = "STDOUT"
	MonoTextStderr MonoTextType = "STDERR"
	MonoTextOther  MonoTextType = "OTHER"
)

// MonoText is monospaced text, either held inline or read from a file.
type MonoText struct {
	titled
	textType MonoTextType
	text     string
	file     *TestCaseFile
}

func NewMonoText(title string, textType MonoTextType, text string) *MonoText {
	return &MonoText{titled: titled{title}, textType: textType, text: text}
}

func NewFileMonoText(title string, textType MonoTextType, file *TestCaseFile) *MonoText {
	return &MonoText{titled: titled{title}, textType: textType, file: file}
}

func (d *MonoText) Type() MonoTextType { return d.textType }

func (d *MonoText) MonoText() (string, error) {
	if d.file == nil {
		return d.text, nil
	}
	return d.file.ReadText()
}

// HTML is an HTML fragment, inline or file backed.
type HTML struct {
	titled
	html string
	file *TestCaseFile
}

func NewHTML(title, html string) *HTML {
	return &HTML{titled: titled{title}, html: html}
}

func NewFileHTML(title string, file *TestCaseFile) *HTML {
	return &HTML{titled: titled{title}, file: file}
}

func (d *HTML) HTML() (string, error) {
	if d.file == nil {
		return d.html, nil
	}
	return d.file.ReadText()
}

// TableData is a table, inline or read from a table JSON file.
type TableData struct {
	titled
	table *Table
	file  *TestCaseFile
}

func NewTableData(title string, table *Table) *TableData {
	return &TableData{titled: titled{title}, table: table}
}

func NewFileTableData(title string, file *TestCaseFile) *TableData {
	return &TableData{titled: titled{title}, file: file}
}

func (d *TableData) Table() (*Table, error) {
	if d.file == nil {
		return d.table, nil
	}
	return TableFromFile(d.file.Path())
}

type Image struct {
	titled
	file *TestCaseFile
}

func NewImage(title string, file *TestCaseFile) *Image {
	return &Image{titled: titled{title}, file: file}
}

func (d *Image) ImagePath() string { return d.file.RelativePath() }

type Video struct {
	titled
	file *TestCaseFile
}

func NewVideo(title string, file *TestCaseFile) *Video {
	return &Video{titled: titled{title}, file: file}
}

func (d *Video) VideoPath() string { return d.file.RelativePath() }

// LinkedFile is any other artifact presented as a link.
type LinkedFile struct {
	titled
	file *TestCaseFile
}

func NewLinkedFile(title string, file *TestCaseFile) *LinkedFile {
	return &LinkedFile{titled: titled{title}, file: file}
}

func (d *LinkedFile) File() *TestCaseFile { return d.file }

func (d *LinkedFile) LinkedFilePath() string { return d.file.RelativePath() }

// KindOf returns the variant of d.
func KindOf(d TestReportData) Kind {
	switch d.(type) {
	case *MonoText:
		return KindMonoText
	case *HTML:
		return KindHTML
	case *TableData:
		return KindTable
	case *Image:
		return KindImage
	case *Video:
		return KindVideo
	case *LinkedFile:
		return KindLinkedFile
	default:
		panic(fmt.Sprintf("report: unknown report data %T", d))
	}
}

// Describe flattens d into template data. The key holding the payload is
// named after the variant's accessor, file backed payloads are read here.
func Describe(d TestReportData) (map[string]any, error) {
	out := map[string]any{"title": d.Title()}
	switch d := d.(type) {
	case *MonoText:
		text, err := d.MonoText()
		if err != nil {
			return nil, err
		}
		out["type"] = string(d.Type())
		out["monoText"] = text
	case *HTML:
		html, err := d.HTML()
		if err != nil {
			return nil, err
		}
		out["html"] = html
	case *TableData:
		table, err := d.Table()
		if err != nil {
			return nil, err
		}
		out["table"] = table.JSON()
	case *Image:
		out["imagePath"] = d.ImagePath()
	case *Video:
		out["videoPath"] = d.VideoPath()
	case *LinkedFile:
		out["linkedFilePath"] = d.LinkedFilePath()
	default:
		panic(fmt.Sprintf("report: unknown report data %T", d))
	}
	return out, nil
}
