package nitf

import "fmt"

// SecurityFields returns the 16-field security group shared by the file
// header, image subheaders, and DES subheaders, with field names built from
// the segment prefix ("FS", "IS", "DES").
func SecurityFields(prefix string) []FieldSpec {
	return []FieldSpec{
		{Name: prefix + "CLAS", Width: 1, Class: ClassBCSA, Default: "U"},
		{Name: prefix + "CLSY", Width: 2, Class: ClassBCSA},
		{Name: prefix + "CODE", Width: 11, Class: ClassBCSA},
		{Name: prefix + "CTLH", Width: 2, Class: ClassBCSA},
		{Name: prefix + "REL", Width: 20, Class: ClassBCSA},
		{Name: prefix + "DCTP", Width: 2, Class: ClassBCSA},
		{Name: prefix + "DCDT", Width: 8, Class: ClassBCSA},
		{Name: prefix + "DCXM", Width: 4, Class: ClassBCSA},
		{Name: prefix + "DG", Width: 1, Class: ClassBCSA},
		{Name: prefix + "DGDT", Width: 8, Class: ClassBCSA},
		{Name: prefix + "CLTX", Width: 43, Class: ClassBCSA},
		{Name: prefix + "CATP", Width: 1, Class: ClassBCSA},
		{Name: prefix + "CAUT", Width: 40, Class: ClassBCSA},
		{Name: prefix + "CRSN", Width: 1, Class: ClassBCSA},
		{Name: prefix + "SRDT", Width: 8, Class: ClassBCSA},
		{Name: prefix + "CTLN", Width: 15, Class: ClassBCSA},
	}
}

// fileHeaderPrefix covers the file header through NUMI; the counted segment
// length groups that follow depend on NUMI and friends.
func fileHeaderPrefix() []FieldSpec {
	table := []FieldSpec{
		{Name: "FHDR", Width: 4, Class: ClassBCSA, Default: "NITF"},
		{Name: "FVER", Width: 5, Class: ClassBCSA, Default: "02.10"},
		{Name: "CLEVEL", Width: 2, Class: ClassBCSN, Default: "03"},
		{Name: "STYPE", Width: 4, Class: ClassBCSA, Default: "BF01"},
		{Name: "OSTAID", Width: 10, Class: ClassBCSA, Default: "Unknown"},
		{Name: "FDT", Width: 14, Class: ClassBCSN},
		{Name: "FTITLE", Width: 80, Class: ClassBCSA},
	}
	table = append(table, SecurityFields("FS")...)

	return append(table,
		FieldSpec{Name: "FSCOP", Width: 5, Class: ClassBCSN, Default: "0"},
		FieldSpec{Name: "FSCPYS", Width: 5, Class: ClassBCSN, Default: "0"},
		FieldSpec{Name: "ENCRYP", Width: 1, Class: ClassBCSN, Default: "0"},
		FieldSpec{Name: "FBKGC", Width: 3, Class: ClassBinary, Default: "\x00\x00\x00"},
		FieldSpec{Name: "ONAME", Width: 24, Class: ClassBCSA},
		FieldSpec{Name: "OPHONE", Width: 18, Class: ClassBCSA},
		FieldSpec{Name: "FL", Width: 12, Class: ClassBCSN},
		FieldSpec{Name: "HL", Width: 6, Class: ClassBCSN},
		FieldSpec{Name: "NUMI", Width: 3, Class: ClassBCSN, Default: "0"},
	)
}

// segment length groups of the file header, in file order after NUMI
var lengthGroups = []struct {
	count       string
	sub, data   string // per-segment field name prefixes
	subW, dataW int
}{
	{count: "NUMS", sub: "LSSH", data: "LS", subW: 4, dataW: 6},
	{count: "NUMX", sub: "", data: "", subW: 0, dataW: 0}, // reserved, no group
	{count: "NUMT", sub: "LTSH", data: "LT", subW: 4, dataW: 5},
	{count: "NUMDES", sub: "LDSH", data: "LD", subW: 4, dataW: 9},
	{count: "NUMRES", sub: "LRESH", data: "LRE", subW: 4, dataW: 7},
}

func countField(name string) FieldSpec {
	return FieldSpec{Name: name, Width: 3, Class: ClassBCSN, Default: "0"}
}

// numbered returns the n-th (one-based) instance name of a repeated field.
func numbered(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// imageLengthFields returns the LISHnnn/LInnn pair for image segment n.
func imageLengthFields(n int) []FieldSpec {
	return []FieldSpec{
		{Name: numbered("LISH", n), Width: 6, Class: ClassBCSN},
		{Name: numbered("LI", n), Width: 10, Class: ClassBCSN},
	}
}

// desLengthFields returns the LDSHnnn/LDnnn pair for DES segment n.
func desLengthFields(n int) []FieldSpec {
	return []FieldSpec{
		{Name: numbered("LDSH", n), Width: 4, Class: ClassBCSN},
		{Name: numbered("LD", n), Width: 9, Class: ClassBCSN},
	}
}

// imageSubheaderPrefix covers the image subheader through ICORDS; IGEOLO,
// comments, compression, and band groups are conditional or counted.
func imageSubheaderPrefix() []FieldSpec {
	table := []FieldSpec{
		{Name: "IM", Width: 2, Class: ClassBCSA, Default: "IM"},
		{Name: "IID1", Width: 10, Class: ClassBCSA},
		{Name: "IDATIM", Width: 14, Class: ClassBCSN},
		{Name: "TGTID", Width: 17, Class: ClassBCSA},
		{Name: "IID2", Width: 80, Class: ClassBCSA},
	}
	table = append(table, SecurityFields("IS")...)

	return append(table,
		FieldSpec{Name: "ENCRYP", Width: 1, Class: ClassBCSN, Default: "0"},
		FieldSpec{Name: "ISORCE", Width: 42, Class: ClassBCSA},
		FieldSpec{Name: "NROWS", Width: 8, Class: ClassBCSN},
		FieldSpec{Name: "NCOLS", Width: 8, Class: ClassBCSN},
		FieldSpec{Name: "PVTYPE", Width: 3, Class: ClassBCSA},
		FieldSpec{Name: "IREP", Width: 8, Class: ClassBCSA, Default: "NODISPLY"},
		FieldSpec{Name: "ICAT", Width: 8, Class: ClassBCSA, Default: "SAR"},
		FieldSpec{Name: "ABPP", Width: 2, Class: ClassBCSN},
		FieldSpec{Name: "PJUST", Width: 1, Class: ClassBCSA, Default: "R"},
		FieldSpec{Name: "ICORDS", Width: 1, Class: ClassBCSA, Default: "G"},
	)
}

func igeoloField() FieldSpec {
	return FieldSpec{Name: "IGEOLO", Width: 60, Class: ClassBCSA}
}

func icomField(n int) FieldSpec {
	return FieldSpec{Name: fmt.Sprintf("ICOM%d", n), Width: 80, Class: ClassBCSA}
}

// bandFields returns the per-band subgroup for band n. Lookup tables
// (NLUTS > 0) are not produced by this library.
func bandFields(n int) []FieldSpec {
	return []FieldSpec{
		{Name: fmt.Sprintf("IREPBAND%d", n), Width: 2, Class: ClassBCSA},
		{Name: fmt.Sprintf("ISUBCAT%d", n), Width: 6, Class: ClassBCSA},
		{Name: fmt.Sprintf("IFC%d", n), Width: 1, Class: ClassBCSA, Default: "N"},
		{Name: fmt.Sprintf("IMFLT%d", n), Width: 3, Class: ClassBCSA},
		{Name: fmt.Sprintf("NLUTS%d", n), Width: 1, Class: ClassBCSN, Default: "0"},
	}
}

// imageSubheaderSuffix covers the image subheader after the band groups.
func imageSubheaderSuffix() []FieldSpec {
	return []FieldSpec{
		{Name: "ISYNC", Width: 1, Class: ClassBCSN, Default: "0"},
		{Name: "IMODE", Width: 1, Class: ClassBCSA, Default: "P"},
		{Name: "NBPR", Width: 4, Class: ClassBCSN, Default: "1"},
		{Name: "NBPC", Width: 4, Class: ClassBCSN, Default: "1"},
		{Name: "NPPBH", Width: 4, Class: ClassBCSN},
		{Name: "NPPBV", Width: 4, Class: ClassBCSN},
		{Name: "NBPP", Width: 2, Class: ClassBCSN},
		{Name: "IDLVL", Width: 3, Class: ClassBCSN, Default: "1"},
		{Name: "IALVL", Width: 3, Class: ClassBCSN, Default: "0"},
		{Name: "ILOC", Width: 10, Class: ClassBCSN, Default: "0000000000"},
		{Name: "IMAG", Width: 4, Class: ClassBCSA, Default: "1.0"},
		{Name: "UDIDL", Width: 5, Class: ClassBCSN, Default: "0"},
		{Name: "IXSHDL", Width: 5, Class: ClassBCSN, Default: "0"},
	}
}

// desSubheaderPrefix covers the DES subheader through its security group;
// DESOFLW/DESITEM follow only for TRE_OVERFLOW segments, then DESSHL and the
// user-defined subheader.
func desSubheaderPrefix() []FieldSpec {
	table := []FieldSpec{
		{Name: "DE", Width: 2, Class: ClassBCSA, Default: "DE"},
		{Name: "DESID", Width: 25, Class: ClassBCSA, Default: "XML_DATA_CONTENT"},
		{Name: "DESVER", Width: 2, Class: ClassBCSN, Default: "1"},
	}

	return append(table, SecurityFields("DES")...)
}

func desOverflowFields() []FieldSpec {
	return []FieldSpec{
		{Name: "DESOFLW", Width: 6, Class: ClassBCSA},
		{Name: "DESITEM", Width: 3, Class: ClassBCSN},
	}
}

func desshlField() FieldSpec {
	return FieldSpec{Name: "DESSHL", Width: 4, Class: ClassBCSN, Default: "0"}
}

// XMLSubheaderLen is the serialized width of the XML_DATA_CONTENT
// user-defined subheader (the DESSHL value it requires).
const XMLSubheaderLen = 773

// XMLSubheaderFields returns the XML_DATA_CONTENT user-defined subheader
// table: content description, producer, and the corner point group that
// echoes the image footprint.
func XMLSubheaderFields() []FieldSpec {
	return []FieldSpec{
		{Name: "DESCRC", Width: 5, Class: ClassBCSN, Default: "99999"},
		{Name: "DESSHFT", Width: 8, Class: ClassBCSA, Default: "XML"},
		{Name: "DESSHDT", Width: 20, Class: ClassBCSA},
		{Name: "DESSHRP", Width: 40, Class: ClassBCSA},
		{Name: "DESSHSI", Width: 60, Class: ClassBCSA},
		{Name: "DESSHSV", Width: 10, Class: ClassBCSA},
		{Name: "DESSHSD", Width: 20, Class: ClassBCSA},
		{Name: "DESSHTN", Width: 120, Class: ClassBCSA},
		{Name: "DESSHLPG", Width: 125, Class: ClassBCSA},
		{Name: "DESSHLPT", Width: 25, Class: ClassBCSA},
		{Name: "DESSHLI", Width: 20, Class: ClassBCSA},
		{Name: "DESSHLIN", Width: 120, Class: ClassBCSA},
		{Name: "DESSHABS", Width: 200, Class: ClassBCSA},
	}
}
