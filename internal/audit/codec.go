package audit

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

var ErrMalformed = errors.New("malformed audit data")

var csvHeader = []string{"id", "user_id", "username", "action", "created_at"}

// WriteCSV writes entries with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.UserID,
			e.Username,
			e.Action,
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows produced by WriteCSV. The header row is required;
// the id column is ignored since imported rows get fresh ids.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%w: unexpected column %q", ErrMalformed, header[i])
		}
	}

	var entries []Entry
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		e, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func entryFromRow(row []string) (Entry, error) {
	e := Entry{UserID: row[1], Username: row[2], Action: row[3]}
	if e.UserID == "" || e.Action == "" {
		return Entry{}, fmt.Errorf("%w: user_id and action are required", ErrMalformed)
	}
	ts, err := time.Parse(time.RFC3339Nano, row[4])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: created_at: %v", ErrMalformed, err)
	}
	e.CreatedAt = ts.UTC()
	return e, nil
}

// WriteJSON writes entries as a JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// ReadJSON parses a JSON array of entries.
func ReadJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	for i := range entries {
		if entries[i].UserID == "" || entries[i].Action == "" {
			return nil, fmt.Errorf("%w: entry %d: user_id and action are required", ErrMalformed, i)
		}
		if entries[i].CreatedAt.IsZero() {
			return nil, fmt.Errorf("%w: entry %d: created_at is required", ErrMalformed, i)
		}
		entries[i].ID = 0
		entries[i].CreatedAt = entries[i].CreatedAt.UTC()
	}
	return entries, nil
}
