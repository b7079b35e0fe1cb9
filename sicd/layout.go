package sicd

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/layout"
	"github.com/arloliu/sario/nitf"
)

const (
	// isSizeMax is the largest image segment payload the container allows.
	isSizeMax = 9_999_999_998
	// ilocMax is the largest row count addressable by the 5-digit location
	// offset chaining consecutive segments.
	ilocMax = 99_999
	// blockLimit is the largest pixel count per block dimension; larger
	// dimensions use the "no blocking" marker.
	blockLimit = 8192
)

// containerPlan is the outcome of planning one product: the container with
// finalized headers, the byte-level layout, and the serialized metadata.
type containerPlan struct {
	container *nitf.Nitf
	plan      *layout.Plan
	xml       []byte
	pixel     pixelType
	nrows     int64
	ncols     int64
	segRows   []int64
}

// segmentRows splits nrows into per-segment row counts under the container's
// segment size and location limits.
func segmentRows(nrows, bytesPerRow int64) ([]int64, error) {
	if bytesPerRow > isSizeMax {
		return nil, fmt.Errorf("%w: row of %d bytes exceeds the segment limit", errs.ErrLayout, bytesPerRow)
	}

	rowsPerSeg := isSizeMax / bytesPerRow
	if rowsPerSeg > ilocMax {
		rowsPerSeg = ilocMax
	}

	var segs []int64
	for remaining := nrows; remaining > 0; remaining -= rowsPerSeg {
		rows := rowsPerSeg
		if remaining < rowsPerSeg {
			rows = remaining
		}
		segs = append(segs, rows)
	}

	return segs, nil
}

// dms renders one angle as degrees/minutes/seconds with the given degree
// digit count and hemisphere letters.
func dms(angle float64, degDigits int, pos, neg byte) string {
	hemi := pos
	if angle < 0 {
		hemi = neg
		angle = -angle
	}

	total := int64(math.Round(angle * 3600))
	deg := total / 3600
	min := (total % 3600) / 60
	sec := total % 60

	return fmt.Sprintf("%0*d%02d%02d%c", degDigits, deg, min, sec, hemi)
}

// igeoloFor renders four lat/lon corners as the 60-byte corner location
// field.
func igeoloFor(corners [4][2]float64) string {
	out := ""
	for _, c := range corners {
		out += dms(c[0], 2, 'N', 'S') + dms(c[1], 3, 'E', 'W')
	}

	return out
}

// lerpCorners interpolates the image corner points at a row fraction,
// working in earth-centered coordinates so long segments stay on the
// ellipsoid.
func lerpCorners(corners [4][2]float64, frac float64) (left, right [2]float64) {
	lerp := func(a, b [2]float64) [2]float64 {
		pa := geodeticToECEF(a[0], a[1], 0)
		pb := geodeticToECEF(b[0], b[1], 0)
		var p [3]float64
		for i := range p {
			p[i] = pa[i] + (pb[i]-pa[i])*frac
		}
		lat, lon, _ := ecefToGeodetic(p)

		return [2]float64{lat, lon}
	}

	// corner order is FRFC, FRLC, LRLC, LRFC: the first-column edge runs
	// corner 1 to corner 4, the last-column edge corner 2 to corner 3
	return lerp(corners[0], corners[3]), lerp(corners[1], corners[2])
}

// segmentCorners returns the corner points of the rows [first, first+rows)
// slice of the full image.
func segmentCorners(corners [4][2]float64, first, rows, nrows int64) [4][2]float64 {
	topFrac := float64(first) / float64(nrows)
	botFrac := float64(first+rows) / float64(nrows)

	topLeft, topRight := lerpCorners(corners, topFrac)
	botLeft, botRight := lerpCorners(corners, botFrac)

	return [4][2]float64{topLeft, topRight, botRight, botLeft}
}

// desshlpgFor renders the five corner point pairs of the DES subheader
// location group (first corner repeated to close the polygon).
func desshlpgFor(corners [4][2]float64) string {
	out := ""
	for i := 0; i < 5; i++ {
		c := corners[i%4]
		out += fmt.Sprintf("%+012.8f%+013.8f", c[0], c[1])
	}

	return out
}

// iid1For names image segment seg (one-based) of total segments: a single
// segment is numbered 000, split segments 001 and up.
func iid1For(seg, total int) string {
	if total == 1 {
		return "SICD000"
	}

	return fmt.Sprintf("SICD%03d", seg)
}

// headerDateTime is the CCYYMMDDhhmmss form of the file and image segment
// date-time fields.
const headerDateTime = "20060102150405"

// planContainer computes the complete container structure and byte layout
// for one metadata model. Planning is pure: the same model yields an
// identical plan.
//
// Returns:
//   - *containerPlan: Finalized container, layout, and XML snapshot
//   - error: errs.ErrLayout for dimension, pixel type, or addressing
//     violations; a metadata load error if required elements are missing
func planContainer(meta *Metadata) (*containerPlan, error) {
	nrows, err := meta.NumRows()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}
	ncols, err := meta.NumCols()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}
	if nrows <= 0 || ncols <= 0 {
		return nil, fmt.Errorf("%w: non-positive image dimensions %dx%d", errs.ErrLayout, nrows, ncols)
	}

	token, err := meta.PixelType()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}
	pixel, ok := pixelTypes[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pixel type %q", errs.ErrLayout, token)
	}

	corners, err := meta.ImageCorners()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}
	collectStart, err := meta.CollectStart()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}

	xml, err := meta.XML.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize metadata: %w", err)
	}

	segRows, err := segmentRows(nrows, ncols*int64(pixel.dt.ItemSize()))
	if err != nil {
		return nil, err
	}

	container := nitf.New()
	hdr := container.Header
	ftitle := meta.Header.FTitle
	if err := hdr.SetStr("OSTAID", orDefault(meta.Header.OStaID, "Unknown")); err != nil {
		return nil, err
	}
	if err := hdr.SetStr("FDT", collectStart.UTC().Format(headerDateTime)); err != nil {
		return nil, err
	}
	if err := hdr.SetStr("FTITLE", ftitle); err != nil {
		return nil, err
	}
	if err := meta.Header.Security.apply(hdr, "FS"); err != nil {
		return nil, err
	}
	if err := hdr.SetStr("ONAME", meta.Header.OName); err != nil {
		return nil, err
	}
	if err := hdr.SetStr("OPHONE", meta.Header.OPhone); err != nil {
		return nil, err
	}

	firstRow := int64(0)
	for i, rows := range segRows {
		prevRows := int64(0)
		if i > 0 {
			prevRows = segRows[i-1]
		}
		sub, err := buildImageSubheader(meta, pixel, i, len(segRows),
			firstRow, rows, prevRows, nrows, ncols, corners, collectStart)
		if err != nil {
			return nil, err
		}
		container.Images = append(container.Images, &nitf.ImageSegment{
			Subheader:  sub,
			DataLength: rows * ncols * int64(pixel.dt.ItemSize()),
		})
		firstRow += rows
	}

	des, err := buildDESegment(meta, corners, collectStart, int64(len(xml)))
	if err != nil {
		return nil, err
	}
	container.DES = append(container.DES, des)

	if err := container.Finalize(); err != nil {
		return nil, err
	}

	plan, err := layoutFor(container, pixel, segRows, ncols)
	if err != nil {
		return nil, err
	}

	return &containerPlan{
		container: container,
		plan:      plan,
		xml:       xml,
		pixel:     pixel,
		nrows:     nrows,
		ncols:     ncols,
		segRows:   segRows,
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}

func buildImageSubheader(meta *Metadata, pixel pixelType, seg, total int,
	firstRow, rows, prevRows, nrows, ncols int64, corners [4][2]float64, collectStart time.Time,
) (*nitf.Fields, error) {
	img := meta.Image
	sub := nitf.NewImageSubheader(2, len(img.IComments), true)

	sets := []struct {
		name string
		val  string
	}{
		{"IID1", iid1For(seg+1, total)},
		{"IDATIM", collectStart.UTC().Format(headerDateTime)},
		{"TGTID", img.TgtID},
		{"IID2", orDefault(img.IID2, meta.Header.FTitle)},
		{"ISORCE", img.ISorce},
		{"PVTYPE", pixel.pvtype},
		{"IGEOLO", igeoloFor(segmentCorners(corners, firstRow, rows, nrows))},
		{"ISUBCAT1", pixel.subcats[0]},
		{"ISUBCAT2", pixel.subcats[1]},
	}
	for _, s := range sets {
		if err := sub.SetStr(s.name, s.val); err != nil {
			return nil, err
		}
	}
	if err := img.Security.apply(sub, "IS"); err != nil {
		return nil, err
	}
	for i, comment := range img.IComments {
		if err := sub.SetStr(fmt.Sprintf("ICOM%d", i+1), comment); err != nil {
			return nil, err
		}
	}

	nppbh, nppbv := ncols, rows
	if nppbh > blockLimit {
		nppbh = 0
	}
	if nppbv > blockLimit {
		nppbv = 0
	}

	iloc := "0000000000"
	ialvl := int64(0)
	if seg > 0 {
		// attach below the previous segment: row offset is its height
		iloc = fmt.Sprintf("%05d%05d", prevRows, 0)
		ialvl = int64(seg)
	}

	ints := []struct {
		name string
		val  int64
	}{
		{"NROWS", rows},
		{"NCOLS", ncols},
		{"ABPP", pixel.bits},
		{"NPPBH", nppbh},
		{"NPPBV", nppbv},
		{"NBPP", pixel.bits},
		{"IDLVL", int64(seg + 1)},
		{"IALVL", ialvl},
	}
	for _, s := range ints {
		if err := sub.SetInt(s.name, s.val); err != nil {
			return nil, err
		}
	}
	if err := sub.SetStr("ILOC", iloc); err != nil {
		return nil, err
	}

	return sub, nil
}

func buildDESegment(meta *Metadata, corners [4][2]float64, collectStart time.Time, xmlLen int64) (*nitf.DESegment, error) {
	des := nitf.NewXMLDESegment()
	if err := meta.DES.Security.apply(des.Subheader, "DES"); err != nil {
		return nil, err
	}

	version := meta.Version()
	sets := []struct {
		name string
		val  string
	}{
		{"DESSHDT", collectStart.UTC().Format("2006-01-02T15:04:05Z")},
		{"DESSHRP", meta.DES.DESSHRP},
		{"DESSHSI", specTitle},
		{"DESSHSV", version.SpecVersion},
		{"DESSHSD", version.SpecDate},
		{"DESSHTN", version.Namespace},
		{"DESSHLPG", desshlpgFor(corners)},
		{"DESSHLI", meta.DES.DESSHLI},
		{"DESSHLIN", meta.DES.DESSHLIN},
		{"DESSHABS", meta.DES.DESSHABS},
	}
	for _, s := range sets {
		if err := des.UserHeader.SetStr(s.name, s.val); err != nil {
			return nil, err
		}
	}
	des.DataLength = xmlLen

	return des, nil
}

// layoutFor converts a finalized container to the byte-level plan.
func layoutFor(container *nitf.Nitf, pixel pixelType, segRows []int64, ncols int64) (*layout.Plan, error) {
	fl, err := container.FileLength()
	if err != nil {
		return nil, err
	}
	hl, err := container.Header.Int("HL")
	if err != nil {
		return nil, err
	}

	plan := &layout.Plan{Total: fl}
	plan.Segments = append(plan.Segments, layout.Segment{
		Kind: layout.KindHeader, Name: "FileHeader", Offset: 0, Length: hl,
	})
	for i, seg := range container.Images {
		plan.Segments = append(plan.Segments,
			layout.Segment{
				Kind:   layout.KindHeader,
				Name:   fmt.Sprintf("ImageSubheader%03d", i+1),
				Offset: seg.SubheaderOffset,
				Length: seg.DataOffset - seg.SubheaderOffset,
			},
			layout.Segment{
				Kind:   layout.KindData,
				Name:   fmt.Sprintf("Image%03d", i+1),
				Offset: seg.DataOffset,
				Length: seg.DataLength,
				Dtype:  pixel.dt,
				Shape:  []int{int(segRows[i]), int(ncols)},
			},
		)
	}
	for i, seg := range container.DES {
		plan.Segments = append(plan.Segments,
			layout.Segment{
				Kind:   layout.KindHeader,
				Name:   fmt.Sprintf("DESubheader%03d", i+1),
				Offset: seg.SubheaderOffset,
				Length: seg.DataOffset - seg.SubheaderOffset,
			},
			layout.Segment{
				Kind:   layout.KindMetadata,
				Name:   "XML",
				Offset: seg.DataOffset,
				Length: seg.DataLength,
			},
		)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return plan, nil
}
