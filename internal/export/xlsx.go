// Package export writes comparison results as spreadsheets.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/sportcar/internal/model"
)

// Sheet names of an exported comparison.
const (
	RankingSheet = "Classement"
	PointsSheet  = "Points"
)

// RankingHeader is the first row of the ranking sheet.
var RankingHeader = []string{
	"Rang", "Véhicule", "Marque", "Modèle", "Version", "Prix (€)", "Puissance (ch)",
	"Score IA", "Catégorie", "Carburant", "Consommation", "Places", "Sécurité", "Fiabilité",
}

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds the spreadsheet of res: the ranking, then the pros and
// cons of every vehicle in ranking order.
func Workbook(res *model.Result) (*xlsx.File, error) {
	if res == nil || len(res.Ranking) == 0 {
		return nil, eris.New("export: empty comparison result")
	}

	f := xlsx.NewFile()
	ranking, err := f.AddSheet(RankingSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add ranking sheet")
	}
	addStrings(ranking.AddRow(), RankingHeader...)
	for i, s := range res.Ranking {
		row := ranking.AddRow()
		row.AddCell().SetInt(i + 1)
		addStrings(row, s.Name, s.Brand, s.Model, s.Version)
		row.AddCell().SetInt(s.Price)
		row.AddCell().SetInt(s.Power)
		row.AddCell().SetInt(s.AIScore)
		addStrings(row, s.Category, s.Fuel, s.Consumption)
		row.AddCell().SetInt(s.Seats)
		row.AddCell().SetInt(s.Safety)
		row.AddCell().SetInt(s.Reliability)
	}

	points, err := f.AddSheet(PointsSheet)
	if err != nil {
		return nil, eris.Wrap(err, "export: add points sheet")
	}
	addStrings(points.AddRow(), "Véhicule", "Type", "Point")
	for _, s := range res.Ranking {
		for _, p := range s.Pros {
			addStrings(points.AddRow(), s.Name, "Point fort", p)
		}
		for _, c := range s.Cons {
			addStrings(points.AddRow(), s.Name, "Point faible", c)
		}
	}
	return f, nil
}

// WriteXLSX saves the workbook of res to path.
func WriteXLSX(path string, res *model.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// Write streams the workbook of res to w.
func Write(w io.Writer, res *model.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
