package backend

// Op is the polymorphic capability set a Client.Start call accepts
// (spec.md §4.1): PUT, GET, RANGE, DELETE and the key-range LIST query
// that backs Listing.Prepare and Upload.Prepare's manifest probe. Each
// concrete op carries its own result fields, filled in by Start before its
// Sync resolves.
type Op interface {
	isOp()
}

// PutOp stores Value under Key.
type PutOp struct {
	Key   string
	Value []byte
}

func (*PutOp) isOp() {}

// GetOp fetches the full value stored under Key. Value is populated on
// completion.
type GetOp struct {
	Key   string
	Value []byte
}

func (*GetOp) isOp() {}

// RangeOp fetches a byte range [Offset, Offset+Length) of the value stored
// under Key. Value is populated on completion. Length <= 0 means "to the
// end of the value".
type RangeOp struct {
	Key    string
	Offset int64
	Length int64
	Value  []byte
}

func (*RangeOp) isOp() {}

// DeleteOp removes Key. Deleting an absent key is not an error.
type DeleteOp struct {
	Key string
}

func (*DeleteOp) isOp() {}

// ListRangeOp is the key-range query backing Listing.Prepare (unbounded,
// [Start, End] straddling every "<chunk-id>-*" key) and Upload.Prepare's
// manifest probe (Start == End == the manifest key, MaxItems == 1). Both
// bounds are inclusive, matching GetKeyRange's IncludeStart/IncludeEnd in
// the original source. Keys is populated on completion, sorted ascending.
type ListRangeOp struct {
	Start    string
	End      string
	MaxItems int
	Keys     []string
}

func (*ListRangeOp) isOp() {}
