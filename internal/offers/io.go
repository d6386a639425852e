package offers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Well-known general column titles after retitling.
const (
	columnTradingDate   = "Trading Date"
	columnTradingPeriod = "Trading Period"
	columnParticipant   = "Participant"
	columnGridExitPoint = "Grid Exit Point"
)

// LoadWideCSV reads wide submission rows from a WITS-style CSV file.
// Column titles are retitled from underscore form ("trading_date") to
// spaced title case ("Trading Date") before matching. Any column whose
// title contains "Band" is treated as a band cell; empty band cells read
// as zero. General columns other than the well-known ones are ignored.
func LoadWideCSV(r io.Reader) ([]WideOfferRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	titles := make([]string, len(header))
	for i, h := range header {
		titles[i] = retitle(h)
	}

	col := func(name string) int {
		for i, t := range titles {
			if t == name {
				return i
			}
		}
		return -1
	}

	dateCol := col(columnTradingDate)
	periodCol := col(columnTradingPeriod)
	participantCol := col(columnParticipant)
	locationCol := col(columnGridExitPoint)
	if dateCol < 0 || periodCol < 0 || participantCol < 0 || locationCol < 0 {
		return nil, fmt.Errorf("missing general columns, got %v", titles)
	}

	var rows []WideOfferRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++

		period, err := strconv.Atoi(strings.TrimSpace(record[periodCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid trading period %q", line, record[periodCol])
		}

		row := WideOfferRow{
			TradingDate:   strings.TrimSpace(record[dateCol]),
			TradingPeriod: period,
			ParticipantID: strings.TrimSpace(record[participantCol]),
			LocationID:    strings.TrimSpace(record[locationCol]),
			Bands:         make(map[string]float64),
		}

		for i, title := range titles {
			if !strings.Contains(title, "Band") {
				continue
			}
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				row.Bands[title] = 0
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid value %q for %s", line, cell, title)
			}
			row.Bands[title] = value
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// retitle converts an underscore-separated column name into spaced title
// case, e.g. "band1_plsr_6s_price" -> "Band1 Plsr 6S Price". The reserve
// markers keep their capital S.
func retitle(name string) string {
	words := strings.Split(strings.ReplaceAll(strings.TrimSpace(name), "_", " "), " ")
	for i, w := range words {
		switch strings.ToLower(w) {
		case "6s":
			words[i] = "6S"
		case "60s":
			words[i] = "60S"
		default:
			words[i] = capitalize(strings.ToLower(w))
		}
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
