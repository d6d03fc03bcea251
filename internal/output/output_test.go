package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/notify"
)

func testRecords(t *testing.T) []history.Record {
	t.Helper()
	now := time.Now()
	xrun, err := history.NewRecord(notify.XRun{}, "monitor", now.Add(-5*time.Minute))
	require.NoError(t, err)
	port, err := history.NewRecord(notify.PortRegistration{Port: 3, Registered: true}, "monitor", now.Add(-2*time.Hour))
	require.NoError(t, err)
	return []history.Record{xrun, port}
}

func TestNewFormatter(t *testing.T) {
	for _, ft := range FormatTypes() {
		f, err := NewFormatter(ft, FormatterOptions{})
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	f, err := NewFormatter("", FormatterOptions{})
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, f)

	_, err = NewFormatter("dmenu", FormatterOptions{})
	assert.Error(t, err)
}

func TestPlainFormatter_MatchesRender(t *testing.T) {
	records := testRecords(t)
	var buf bytes.Buffer

	require.NoError(t, NewPlainFormatter(FormatterOptions{}).Format(&buf, records))

	want := notify.Render(notify.XRun{}) + notify.Render(notify.PortRegistration{Port: 3, Registered: true})
	assert.Equal(t, want, buf.String())
	assert.Contains(t, buf.String(), "registered port with id 3")
}

func TestPlainFormatter_TimeAndClient(t *testing.T) {
	records := testRecords(t)
	var buf bytes.Buffer

	f := NewPlainFormatter(FormatterOptions{ShowTime: true, ShowClient: true})
	require.NoError(t, f.Format(&buf, records))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[5 minutes ago] <monitor> JACK: xrun occurred", lines[0])
	assert.Equal(t, "[2 hours ago] <monitor> JACK: registered port with id 3", lines[1])
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	r, err := history.NewRecord(notify.SampleRate{Rate: 192000}, "c", time.Now())
	require.NoError(t, err)
	var buf bytes.Buffer

	f := NewPlainFormatter(FormatterOptions{Template: "{{upper .Kind.String}} {{comma .Rate}}\n\n"})
	require.NoError(t, f.Format(&buf, []history.Record{r}))
	assert.Equal(t, "SAMPLE_RATE 192,000\n", buf.String())
}

func TestPlainFormatter_InvalidTemplateFallsBack(t *testing.T) {
	records := testRecords(t)
	var buf bytes.Buffer

	f := NewPlainFormatter(FormatterOptions{Template: "{{.Missing"})
	require.NoError(t, f.Format(&buf, records[:1]))
	assert.Equal(t, "JACK: xrun occurred\n", buf.String())
}

func TestJSONFormatter_Array(t *testing.T) {
	records := testRecords(t)
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter(FormatterOptions{}).Format(&buf, records))

	var got []history.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, records, got)
	assert.Contains(t, buf.String(), `"kind": "xrun"`)
}

func TestJSONFormatter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(FormatterOptions{}).Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_Stream(t *testing.T) {
	records := testRecords(t)
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter(FormatterOptions{Stream: true}).Format(&buf, records))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		var r history.Record
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		assert.Equal(t, records[i].ID, r.ID)
	}
}

func TestYAMLFormatter(t *testing.T) {
	records := testRecords(t)
	var buf bytes.Buffer

	f := NewYAMLFormatter(FormatterOptions{})
	require.NoError(t, f.Format(&buf, records[:1]))
	require.NoError(t, f.Format(&buf, records[1:]))

	assert.Equal(t, 2, strings.Count(buf.String(), "---\n"))
	assert.Contains(t, buf.String(), "kind: xrun")
	assert.Contains(t, buf.String(), "kind: port_registration")

	dec := yaml.NewDecoder(&buf)
	var got []history.Record
	for {
		var r history.Record
		if err := dec.Decode(&r); err != nil {
			break
		}
		got = append(got, r)
	}
	assert.Equal(t, records, got)
}
