package apimodels

import "errors"

// Analysis failures. Wrap with fmt.Errorf("%w: ...") so the message names the offending field.
var (
	ErrUnsupportedAnalysisType = errors.New("unsupported analysis type")
	ErrUnsupportedModel        = errors.New("unsupported model")
	ErrDataFormat              = errors.New("data format error")
	ErrInvalidColumn           = errors.New("invalid column")
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrInsufficientData        = errors.New("insufficient data")
	ErrNotImplemented          = errors.New("not implemented")

	// ErrBusy means no compute slot freed up before the request gave up waiting.
	ErrBusy = errors.New("compute capacity exhausted")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrUnsupportedAnalysisType, "unsupported_analysis_type"},
	{ErrUnsupportedModel, "unsupported_model"},
	{ErrDataFormat, "data_format"},
	{ErrInvalidColumn, "invalid_column"},
	{ErrInvalidParameter, "invalid_parameter"},
	{ErrInsufficientData, "insufficient_data"},
	{ErrNotImplemented, "not_implemented"},
	{ErrBusy, "busy"},
}

// ErrorKind returns the wire name of the analysis failure wrapped by err,
// or "internal" if err is not one of them.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
