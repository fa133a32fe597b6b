package graph

import "github.com/passbi/passbi_netex/internal/models"

// LookupOperatingPeriod maps a global operating period index back to its
// dataset and in-dataset index. It walks datasets in the same order the
// resolver used to assign global indices.
func LookupOperatingPeriod(datasets []models.Dataset, global int) (period *models.UICOperatingPeriod, dataset, local int, ok bool) {
	if global < 0 {
		return nil, 0, 0, false
	}
	for di := range datasets {
		periods := datasets[di].OperatingPeriods
		if global < len(periods) {
			return &periods[global], di, global, true
		}
		global -= len(periods)
	}
	return nil, 0, 0, false
}
