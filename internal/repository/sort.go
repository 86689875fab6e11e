package repository

import (
	"sort"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// SortSales puts sales in the order ListSales promises: activated sales
// first by activation date, then id.
func SortSales(sales []model.Sale) {
	sort.SliceStable(sales, func(i, j int) bool {
		a, b := sales[i].ActivationDate, sales[j].ActivationDate
		if (a == "") != (b == "") {
			return a != ""
		}
		if a != b {
			return a < b
		}
		return sales[i].ID < sales[j].ID
	})
}
