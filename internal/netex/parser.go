package netex

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/passbi/passbi_netex/internal/calendar"
	"github.com/passbi/passbi_netex/internal/models"
	"golang.org/x/sync/errgroup"
)

// Source names one NeTEx input, either a single XML file or a zip of XML files
type Source struct {
	Name string
	Path string
}

// LoadDatasets parses all sources in parallel. The result keeps the order of
// sources, which fixes node and operating period numbering downstream.
func LoadDatasets(ctx context.Context, sources []Source, workers int) ([]models.Dataset, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	datasets := make([]models.Dataset, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, max(len(sources), 1)))

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ds, err := ParseSource(src)
			if err != nil {
				return fmt.Errorf("failed to parse dataset %s: %w", src.Name, err)
			}
			datasets[i] = *ds
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return datasets, nil
}

// ParseSource parses a zip or XML file depending on its extension
func ParseSource(src Source) (*models.Dataset, error) {
	var (
		ds  *models.Dataset
		err error
	)
	if strings.EqualFold(filepath.Ext(src.Path), ".zip") {
		ds, err = ParseZip(src.Path)
	} else {
		ds, err = ParseFile(src.Path)
	}
	if err != nil {
		return nil, err
	}

	ds.Name = src.Name
	if ds.Name == "" {
		ds.Name = filepath.Base(src.Path)
	}
	log.Printf("Parsed dataset %s: %d stop points, %d patterns, %d journeys, %d operating periods",
		ds.Name, len(ds.StopPoints), len(ds.JourneyPatterns), len(ds.ServiceJourneys), len(ds.OperatingPeriods))
	return ds, nil
}

// ParseFile parses a single NeTEx XML file
func ParseFile(path string) (*models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	p := newParser()
	if err := p.parse(file); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return p.finish(), nil
}

// ParseZip parses every XML entry of a NeTEx zip into one dataset. Entries are
// read in name order so the dataset is stable between runs.
func ParseZip(path string) (*models.Dataset, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	files := make([]*zip.File, 0, len(reader.File))
	for _, file := range reader.File {
		// Skip directories and non xml entries
		if file.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(file.Name), ".xml") {
			continue
		}
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	p := newParser()
	for _, file := range files {
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		err = p.parse(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
	}
	return p.finish(), nil
}

// ParseReader parses one NeTEx document
func ParseReader(r io.Reader) (*models.Dataset, error) {
	p := newParser()
	if err := p.parse(r); err != nil {
		return nil, err
	}
	return p.finish(), nil
}

// Digest returns the sha256 of a source file
func Digest(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// parser accumulates records over one or more documents of a dataset
type parser struct {
	ds models.Dataset

	routeLines    map[string]string // Route id -> LineRef
	patternRoutes map[int]string    // pattern index -> RouteRef, resolved in finish
	lineModes     map[string]string // Line id -> TransportMode
	handlers      map[string]func(*element) error
}

func newParser() *parser {
	p := &parser{
		routeLines:    make(map[string]string),
		patternRoutes: make(map[int]string),
		lineModes:     make(map[string]string),
	}
	p.handlers = map[string]func(*element) error{
		"ScheduledStopPoint":    p.scheduledStopPoint,
		"ServiceJourneyPattern": p.journeyPattern,
		"JourneyPattern":        p.journeyPattern,
		"Route":                 p.route,
		"ServiceJourney":        p.serviceJourney,
		"UicOperatingPeriod":    p.operatingPeriod,
		"DayTypeAssignment":     p.dayTypeAssignment,
		"Line":                  p.line,
		"Authority":             p.authority,
	}
	return p
}

func (p *parser) parse(r io.Reader) error {
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		handler, ok := p.handlers[start.Name.Local]
		if !ok {
			continue
		}

		var el element
		if err := decoder.DecodeElement(&el, &start); err != nil {
			return fmt.Errorf("failed to decode %s: %w", start.Name.Local, err)
		}
		if err := handler(&el); err != nil {
			return err
		}
	}
}

// finish resolves references that may be declared after their use
func (p *parser) finish() *models.Dataset {
	for idx, routeRef := range p.patternRoutes {
		if p.ds.JourneyPatterns[idx].LineRef == "" {
			p.ds.JourneyPatterns[idx].LineRef = p.routeLines[routeRef]
		}
	}

	patternLines := make(map[string]string, len(p.ds.JourneyPatterns))
	for _, jp := range p.ds.JourneyPatterns {
		patternLines[jp.ID] = jp.LineRef
	}
	for i := range p.ds.ServiceJourneys {
		sj := &p.ds.ServiceJourneys[i]
		if sj.TransportMode == "" {
			sj.TransportMode = p.lineModes[patternLines[sj.PatternRef]]
		}
	}

	ds := p.ds
	return &ds
}

func (p *parser) scheduledStopPoint(el *element) error {
	stop := models.StopPoint{ID: el.attr("id")}
	if n := el.find("ShortName"); n != nil {
		stop.ShortName = cleanShortName(n.Text)
	}
	if stop.ShortName == "" {
		if n := el.find("Name"); n != nil {
			stop.ShortName = cleanShortName(n.Text)
		}
	}
	if n := el.find("Longitude"); n != nil {
		lon, err := ParseCoordinate(n.Text, 180)
		if err != nil {
			return fmt.Errorf("stop point %s: %w", stop.ID, err)
		}
		stop.Longitude = lon
	}
	if n := el.find("Latitude"); n != nil {
		lat, err := ParseCoordinate(n.Text, 90)
		if err != nil {
			return fmt.Errorf("stop point %s: %w", stop.ID, err)
		}
		stop.Latitude = lat
	}
	p.ds.StopPoints = append(p.ds.StopPoints, stop)
	return nil
}

func (p *parser) journeyPattern(el *element) error {
	jp := models.JourneyPattern{ID: el.attr("id")}
	if n := el.find("LineRef"); n != nil {
		jp.LineRef = n.attr("ref")
	}
	el.each("StopPointInJourneyPattern", func(sp *element) {
		point := models.PatternPoint{ID: sp.attr("id")}
		if ref := sp.find("ScheduledStopPointRef"); ref != nil {
			point.StopPointRef = ref.attr("ref")
		}
		jp.Points = append(jp.Points, point)
	})

	if jp.LineRef == "" {
		if n := el.find("RouteRef"); n != nil {
			p.patternRoutes[len(p.ds.JourneyPatterns)] = n.attr("ref")
		}
	}
	p.ds.JourneyPatterns = append(p.ds.JourneyPatterns, jp)
	return nil
}

func (p *parser) route(el *element) error {
	if n := el.find("LineRef"); n != nil {
		p.routeLines[el.attr("id")] = n.attr("ref")
	}
	return nil
}

func (p *parser) serviceJourney(el *element) error {
	sj := models.ServiceJourney{ID: el.attr("id")}
	if n := el.find("ServiceJourneyPatternRef"); n != nil {
		sj.PatternRef = n.attr("ref")
	} else if n := el.find("JourneyPatternRef"); n != nil {
		sj.PatternRef = n.attr("ref")
	}

	dayType := el.find("DayTypeRef")
	if dayType == nil {
		return fmt.Errorf("service journey %s: %w: no DayTypeRef", sj.ID, models.ErrMalformedField)
	}
	sj.DayTypeRef = dayType.attr("ref")

	if n := el.find("TransportMode"); n != nil {
		sj.TransportMode = strings.TrimSpace(n.Text)
	}

	passingTimes := el.find("passingTimes")
	if passingTimes == nil {
		return fmt.Errorf("service journey %s: %w: no passingTimes", sj.ID, models.ErrMalformedField)
	}

	var parseErr error
	passingTimes.each("TimetabledPassingTime", func(tp *element) {
		if parseErr != nil {
			return
		}
		pt, err := passingTime(tp)
		if err != nil {
			parseErr = fmt.Errorf("service journey %s: %w", sj.ID, err)
			return
		}
		sj.PassingTimes = append(sj.PassingTimes, pt)
	})
	if parseErr != nil {
		return parseErr
	}

	p.ds.ServiceJourneys = append(p.ds.ServiceJourneys, sj)
	return nil
}

// passingTime parses one TimetabledPassingTime. The first stop usually has
// only a departure and the last only an arrival, the missing one is copied.
func passingTime(el *element) (models.PassingTime, error) {
	var pt models.PassingTime
	if n := el.find("StopPointInJourneyPatternRef"); n != nil {
		pt.PatternPointRef = n.attr("ref")
	}

	arrival := el.find("ArrivalTime")
	departure := el.find("DepartureTime")
	if arrival != nil {
		m, err := ParseMinutes(strings.TrimSpace(arrival.Text))
		if err != nil {
			return pt, err
		}
		pt.Arrival = m
	}
	if departure != nil {
		m, err := ParseMinutes(strings.TrimSpace(departure.Text))
		if err != nil {
			return pt, err
		}
		pt.Departure = m
	}

	switch {
	case arrival == nil && departure != nil:
		pt.Arrival = pt.Departure
	case departure == nil && arrival != nil:
		pt.Departure = pt.Arrival
	}
	return pt, nil
}

func (p *parser) operatingPeriod(el *element) error {
	op := models.UICOperatingPeriod{ID: el.attr("id")}
	var err error
	if n := el.find("FromDate"); n != nil {
		if op.From, err = ParseDate(strings.TrimSpace(n.Text)); err != nil {
			return fmt.Errorf("operating period %s: %w", op.ID, err)
		}
	}
	if n := el.find("ToDate"); n != nil {
		if op.To, err = ParseDate(strings.TrimSpace(n.Text)); err != nil {
			return fmt.Errorf("operating period %s: %w", op.ID, err)
		}
	}
	if n := el.find("ValidDayBits"); n != nil {
		if op.ValidDayBits, err = calendar.Pack(strings.TrimSpace(n.Text)); err != nil {
			return fmt.Errorf("operating period %s: %w", op.ID, err)
		}
	}
	p.ds.OperatingPeriods = append(p.ds.OperatingPeriods, op)
	return nil
}

func (p *parser) dayTypeAssignment(el *element) error {
	// NeTEx defaults isAvailable to true
	dta := models.DayTypeAssignment{IsAvailable: true}
	if n := el.find("OperatingPeriodRef"); n != nil {
		dta.OperatingPeriodRef = n.attr("ref")
	}
	if n := el.find("DayTypeRef"); n != nil {
		dta.DayTypeRef = n.attr("ref")
	}
	if n := el.find("isAvailable"); n != nil {
		available, err := strconv.ParseBool(strings.TrimSpace(n.Text))
		if err != nil {
			return fmt.Errorf("day type assignment %s: %w: isAvailable %q",
				el.attr("id"), models.ErrMalformedField, n.Text)
		}
		dta.IsAvailable = available
	}
	p.ds.DayTypeAssignments = append(p.ds.DayTypeAssignments, dta)
	return nil
}

func (p *parser) line(el *element) error {
	line := models.Line{ID: el.attr("id")}
	if n := el.find("PublicCode"); n != nil {
		line.ShortName = strings.TrimSpace(n.Text)
	}
	if n := el.find("ShortName"); n != nil && line.ShortName == "" {
		line.ShortName = strings.TrimSpace(n.Text)
	}
	if n := el.find("AuthorityRef"); n != nil {
		line.AuthorityRef = n.attr("ref")
	}
	if n := el.find("TransportMode"); n != nil {
		p.lineModes[line.ID] = strings.TrimSpace(n.Text)
	}
	p.ds.Lines = append(p.ds.Lines, line)
	return nil
}

func (p *parser) authority(el *element) error {
	authority := models.Authority{ID: el.attr("id")}
	if n := el.find("ShortName"); n != nil {
		authority.ShortName = strings.TrimSpace(n.Text)
	}
	if n := el.find("Name"); n != nil && authority.ShortName == "" {
		authority.ShortName = strings.TrimSpace(n.Text)
	}
	p.ds.Authorities = append(p.ds.Authorities, authority)
	return nil
}
