package stackio

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/stackup"
)

var csvHeader = []string{"Name", "Type", "Material", "Dielectric_Fill", "Thickness"}

// WriteCSV writes the stackup layers top-to-bottom as a flat CSV table.
func WriteCSV(s *stackup.Stackup, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range s.StackupLayers() {
		row := []string{
			l.Name,
			l.Type.String(),
			l.Material,
			l.FillMaterial,
			strconv.FormatFloat(l.Thickness, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the stackup to a CSV file at path.
func ExportCSV(s *stackup.Stackup, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "create csv file")
	}
	defer f.Close()
	return WriteCSV(s, f)
}

// ReadCSV appends the layers described by r to s, bottom insertion in file
// order so the file's top-to-bottom ordering is reproduced.
func ReadCSV(s *stackup.Stackup, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidFormat, "read csv header")
	}
	for i, want := range csvHeader {
		if header[i] != want {
			return errors.Newf(errors.ErrCodeInvalidFormat, "csv column %d is %q, want %q", i, header[i], want)
		}
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidFormat, "read csv row")
		}
		thickness, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return errors.Wrapf(err, errors.ErrCodeInvalidFormat, "layer %q thickness", row[0])
		}
		if _, err := s.AddLayer(stackup.AddLayerOptions{
			Name:         row[0],
			Method:       stackup.InsertBottom(),
			Type:         stackup.ParseLayerType(row[1]),
			Material:     row[2],
			FillMaterial: row[3],
			Thickness:    thickness,
		}); err != nil {
			return err
		}
	}
}

// ImportCSV reads a CSV file at path into s.
func ImportCSV(s *stackup.Stackup, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileNotFound, "open csv file")
	}
	defer f.Close()
	return ReadCSV(s, f)
}
