package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
)

func validPlan() *Plan {
	return &Plan{
		Segments: []Segment{
			{Kind: KindHeader, Name: "FileHeader", Offset: 0, Length: 388},
			{Kind: KindMetadata, Name: "XML", Offset: 388, Length: 4321},
			{Kind: KindData, Name: "Image", Offset: 4709, Length: 96, Dtype: dtype.CF8, Shape: []int{3, 4}},
			{Kind: KindPadding, Name: "Pad", Offset: 4805, Length: 2},
		},
		Total: 4807,
	}
}

func TestPlanValidate(t *testing.T) {
	require.NoError(t, validPlan().Validate())
}

func TestPlanValidateRejectsOverlap(t *testing.T) {
	p := validPlan()
	p.Segments[2].Offset -= 10

	err := p.Validate()
	require.ErrorIs(t, err, errs.ErrLayout)
	require.Contains(t, err.Error(), "overlaps")
}

func TestPlanValidateRejectsGap(t *testing.T) {
	p := validPlan()
	p.Segments[3].Offset += 7
	p.Total += 7

	err := p.Validate()
	require.ErrorIs(t, err, errs.ErrLayout)
	require.Contains(t, err.Error(), "gap")
}

func TestPlanValidateRejectsBadTotal(t *testing.T) {
	p := validPlan()
	p.Total++

	require.ErrorIs(t, p.Validate(), errs.ErrLayout)
}

func TestPlanValidateRejectsNegativeLength(t *testing.T) {
	p := validPlan()
	p.Segments[1].Length = -1

	require.ErrorIs(t, p.Validate(), errs.ErrLayout)
}

func TestFind(t *testing.T) {
	p := validPlan()

	seg, ok := p.Find("XML")
	require.True(t, ok)
	require.Equal(t, KindMetadata, seg.Kind)
	require.Equal(t, int64(388), seg.Offset)

	_, ok = p.Find("Missing")
	require.False(t, ok)
}

func TestDataSegments(t *testing.T) {
	segs := validPlan().DataSegments()
	require.Len(t, segs, 1)
	require.Equal(t, "Image", segs[0].Name)
}

func TestDataSegmentLength(t *testing.T) {
	// the worked example: 5727 x 2362 complex64 pixels
	length, err := DataSegmentLength(dtype.CF8, []int{5727, 2362})
	require.NoError(t, err)
	require.Equal(t, int64(5727)*2362*8, length)

	_, err = DataSegmentLength(dtype.CF8, []int{0, 10})
	require.ErrorIs(t, err, errs.ErrLayout)

	_, err = DataSegmentLength(dtype.Dtype{Kind: dtype.KindFloat, Size: 3}, []int{2, 2})
	require.ErrorIs(t, err, errs.ErrLayout)

	_, err = DataSegmentLength(dtype.CF8, nil)
	require.ErrorIs(t, err, errs.ErrLayout)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "Header", KindHeader.String())
	require.Equal(t, "Metadata", KindMetadata.String())
	require.Equal(t, "Data", KindData.String())
	require.Equal(t, "Padding", KindPadding.String())
	require.Equal(t, "Unknown", Kind(0xff).String())
}
