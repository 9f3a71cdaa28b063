package output

// Output formats understood by the writers.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Header rows for the text sections. Keep these as the single source of
// truth; the text writers and their tests use them.
const (
	OffsetHeader       = "ensemble\tforce_pn\tframes\tsamples\tg\tf_kt\tdf_kt"
	PMFHeader          = "center\tf_kt\tdf_kt\tcount"
	PMFBandHeader      = PMFHeader + "\tf_low_kt\tf_high_kt"
	InefficiencyHeader = "source_file\tframes\tstart\tg\tn_eff"
)

// NA marks undefined values in text output.
const NA = "NA"
