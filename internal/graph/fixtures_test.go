package graph

import "github.com/passbi/passbi_netex/internal/models"

// testDatasets returns two datasets sharing the stop "CTL" under different
// ids and coordinates.
//
//	nodes: CTL=0, NTH=1, STH=2, WST=3
//	edges: CTL->NTH (3 journeys), NTH->STH (1), WST->CTL (1)
//	global periods: OP:A1=0, OP:A2=1, OP:B1=2
func testDatasets() []models.Dataset {
	a := models.Dataset{
		Name: "a",
		StopPoints: []models.StopPoint{
			{ID: "SSP:A1", ShortName: "CTL", Longitude: 0, Latitude: 0},
			{ID: "SSP:A2", ShortName: "NTH", Longitude: 1, Latitude: 0},
			{ID: "SSP:A3", ShortName: "STH", Longitude: 2, Latitude: 0},
		},
		JourneyPatterns: []models.JourneyPattern{
			{
				ID:      "JP:A1",
				LineRef: "LIN:A1",
				Points: []models.PatternPoint{
					{ID: "PP:A1", StopPointRef: "SSP:A1"},
					{ID: "PP:A2", StopPointRef: "SSP:A2"},
					{ID: "PP:A3", StopPointRef: "SSP:A3"},
				},
			},
		},
		ServiceJourneys: []models.ServiceJourney{
			{
				ID: "SJ:A1", PatternRef: "JP:A1", DayTypeRef: "DT:A1", TransportMode: "bus",
				PassingTimes: []models.PassingTime{
					{PatternPointRef: "PP:A1", Arrival: 480, Departure: 480},
					{PatternPointRef: "PP:A2", Arrival: 490, Departure: 491},
					{PatternPointRef: "PP:A3", Arrival: 500, Departure: 500},
				},
			},
			{
				ID: "SJ:A2", PatternRef: "JP:A1", DayTypeRef: "DT:A2", TransportMode: "bus",
				PassingTimes: []models.PassingTime{
					{PatternPointRef: "PP:A1", Arrival: 600, Departure: 600},
					{PatternPointRef: "PP:A2", Arrival: 610, Departure: 610},
				},
			},
		},
		OperatingPeriods: []models.UICOperatingPeriod{
			{ID: "OP:A1", From: 220613, To: 220622, ValidDayBits: []byte{0x7F, 0x03}},
			{ID: "OP:A2", From: 220701, To: 220708, ValidDayBits: []byte{0x1F}},
		},
		DayTypeAssignments: []models.DayTypeAssignment{
			{DayTypeRef: "DT:A1", OperatingPeriodRef: "OP:A1", IsAvailable: true},
			{DayTypeRef: "DT:A2", OperatingPeriodRef: "OP:A2", IsAvailable: true},
		},
		Lines:       []models.Line{{ID: "LIN:A1", ShortName: "1", AuthorityRef: "AUT:A"}},
		Authorities: []models.Authority{{ID: "AUT:A", ShortName: "AUTA"}},
	}

	b := models.Dataset{
		Name: "b",
		StopPoints: []models.StopPoint{
			{ID: "SSP:B1", ShortName: "CTL", Longitude: 1, Latitude: 1},
			{ID: "SSP:B2", ShortName: "WST", Longitude: 3, Latitude: 3},
		},
		JourneyPatterns: []models.JourneyPattern{
			{
				ID:      "JP:B1",
				LineRef: "LIN:B1",
				Points: []models.PatternPoint{
					{ID: "PP:B1", StopPointRef: "SSP:B2"},
					{ID: "PP:B2", StopPointRef: "SSP:B1"},
				},
			},
		},
		ServiceJourneys: []models.ServiceJourney{
			{
				ID: "SJ:B1", PatternRef: "JP:B1", DayTypeRef: "DT:B1", TransportMode: "rail",
				PassingTimes: []models.PassingTime{
					{PatternPointRef: "PP:B1", Arrival: 700, Departure: 700},
					{PatternPointRef: "PP:B2", Arrival: 720, Departure: 721},
				},
			},
			{
				// continues onto a pattern point of dataset a
				ID: "SJ:B2", PatternRef: "JP:B1", DayTypeRef: "DT:A1", TransportMode: "rail",
				PassingTimes: []models.PassingTime{
					{PatternPointRef: "PP:B2", Arrival: 800, Departure: 801},
					{PatternPointRef: "PP:A2", Arrival: 815, Departure: 815},
				},
			},
			{
				// a single passing time has no window
				ID: "SJ:B3", PatternRef: "JP:B1", DayTypeRef: "DT:B1", TransportMode: "rail",
				PassingTimes: []models.PassingTime{
					{PatternPointRef: "PP:B1", Arrival: 900, Departure: 900},
				},
			},
		},
		OperatingPeriods: []models.UICOperatingPeriod{
			{ID: "OP:B1", From: 220801, To: 220831, ValidDayBits: []byte{0xFF, 0xFF, 0xFF, 0x7F}},
		},
		DayTypeAssignments: []models.DayTypeAssignment{
			{DayTypeRef: "DT:B1", OperatingPeriodRef: "OP:B1", IsAvailable: true},
		},
		Lines:       []models.Line{{ID: "LIN:B1", ShortName: "R2", AuthorityRef: "AUT:B"}},
		Authorities: []models.Authority{{ID: "AUT:B", ShortName: "AUTB"}},
	}

	return []models.Dataset{a, b}
}

// windowCount returns the number of adjacent passing time pairs in datasets
func windowCount(datasets []models.Dataset) int {
	n := 0
	for _, ds := range datasets {
		for _, sj := range ds.ServiceJourneys {
			if len(sj.PassingTimes) >= 2 {
				n += len(sj.PassingTimes) - 1
			}
		}
	}
	return n
}
