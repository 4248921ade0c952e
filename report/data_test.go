package report

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	m := NewFileManager(t.TempDir(), "default", "emulator-5554", "com.example.FooTest", "testOk")
	htmlFile := m.File(FileTypeHTML, "")
	path, err := htmlFile.Create()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("<b>file</b>"), 0644))

	tableFile := m.File(FileTypeTable, "")
	path, err = tableFile.Create()
	require.NoError(t, err)
	require.NoError(t, TableOf([]string{"k"}, []string{"v"}).WriteToFile(path))

	tests := []struct {
		name string
		data TestReportData
		kind Kind
		want map[string]any
	}{
		{
			name: "inline mono text",
			data: NewMonoText("Out", MonoTextStdout, "hello"),
			kind: KindMonoText,
			want: map[string]any{"title": "Out", "type": "STDOUT", "monoText": "hello"},
		},
		{
			name: "file html",
			data: NewFileHTML("Page", htmlFile),
			kind: KindHTML,
			want: map[string]any{"title": "Page", "html": "<b>file</b>"},
		},
		{
			name: "file table",
			data: NewFileTableData("Metrics", tableFile),
			kind: KindTable,
			want: map[string]any{"title": "Metrics", "table": TableJSON{Headers: []string{"k"}, Rows: [][]string{{"v"}}}},
		},
		{
			name: "image",
			data: NewImage("Shot", m.File(FileTypeScreenshot, "")),
			kind: KindImage,
			want: map[string]any{"title": "Shot", "imagePath": m.RelativePath(FileTypeScreenshot, "")},
		},
		{
			name: "video",
			data: NewVideo("Screen", m.File(FileTypeVideo, "")),
			kind: KindVideo,
			want: map[string]any{"title": "Screen", "videoPath": m.RelativePath(FileTypeVideo, "")},
		},
		{
			name: "linked file",
			data: NewLinkedFile("Coverage", m.File(FileTypeCoverage, "")),
			kind: KindLinkedFile,
			want: map[string]any{"title": "Coverage", "linkedFilePath": m.RelativePath(FileTypeCoverage, "")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.kind, KindOf(tt.data))
			got, err := Describe(tt.data)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err = Describe(NewFileMonoText("Missing", MonoTextOther, m.File(FileTypeText, "")))
	require.Error(t, err)
}

func TestMarkdownHTML(t *testing.T) {
	html, err := MarkdownHTML("Failure", "Status **FAIL**")
	require.NoError(t, err)
	require.Equal(t, "Failure", html.Title())
	got, err := html.HTML()
	require.NoError(t, err)
	require.Equal(t, "<p>Status <strong>FAIL</strong></p>\n", got)
}
