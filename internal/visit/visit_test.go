package visit

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func sampleRecords() []Record {
	return []Record{
		{
			SampleID:        "20250000000001",
			WorkID:          "101",
			Date:            "2025-03-01",
			Session:         "上午",
			ResultCode:      "201.0",
			InterviewerNo:   "A01",
			InterviewerName: "王小明",
			ContactMethod:   "警衛",
			T16Answer:       "3: 警衛或管理員; 5: 其他, \"quoted\"",
			Sampling:        Done,
			SamplingQ:       NotDone,
			InterviewRecord: NotDone,
			HasFill:         "1",
		},
		Placeholder("20250000000002", "102", "https://example.org/record", "A02", "李小華"),
	}
}

func TestCSVRoundTrip(t *testing.T) {
	records := sampleRecords()

	var buf bytes.Buffer
	err := WriteCSV(&buf, records)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))

	read, err := ReadCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(records, read); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadCSVMissingColumns(t *testing.T) {
	input := " SampleID ,ResultCode,Extra\n" +
		"S1,100,ignored\n" +
		"S2\n"

	records, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Record{
		{SampleID: "S1", ResultCode: "100"},
		{SampleID: "S2"},
	}, records)
}

func TestReadCSVKeepsCodesAsText(t *testing.T) {
	records, err := ReadCSV(strings.NewReader("ResultCode,HasFill\n100.0,0\nNA,1\n"))
	require.NoError(t, err)
	require.Equal(t, "100.0", records[0].ResultCode)
	require.Equal(t, "NA", records[1].ResultCode)
}

func TestReadCSVFailures(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visit_records.csv")
	records := sampleRecords()

	require.NoError(t, WriteCSVFile(path, records))
	read, err := ReadCSVFile(path)
	require.NoError(t, err)
	require.Equal(t, records, read)
}

func TestSQLStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	store, err := NewSQLStore(ctx, db)
	require.NoError(t, err)

	{
		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 0)
	}

	records := sampleRecords()
	require.NoError(t, store.Save(ctx, records))
	// saving again replaces the snapshot instead of appending to it
	require.NoError(t, store.Save(ctx, records))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(records, loaded); diff != "" {
		t.Fatal(diff)
	}
}

func TestDBConfigFile(t *testing.T) {
	cfg := DBConfig{File: filepath.Join(t.TempDir(), "records.db")}
	require.True(t, cfg.Enabled())
	require.False(t, DBConfig{}.Enabled())

	db, err := cfg.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStore(context.Background(), db)
	require.NoError(t, err)

	_, err = DBConfig{}.OpenDB()
	require.Error(t, err)
}
