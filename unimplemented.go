package histostore

import (
	"fmt"

	"github.com/hupe1980/histostore/internal/capability"
	"github.com/hupe1980/histostore/ndarray"
)

// CombineFunc merges two histograms of one binning.
type CombineFunc func(a, b *ndarray.Array) *ndarray.Array

// TemplateToNative would export template histograms to an analysis-framework
// file. It requires the native capability and is not implemented.
func TemplateToNative(templatePath string, histNames []string, nativePath string) error {
	if _, err := capability.Require[NativeReader](capabilities, capability.Native); err != nil {
		return translateError(err)
	}
	return fmt.Errorf("%w: TemplateToNative", ErrUnimplemented)
}

// CombineTemplates would combine histograms from several templates into one
// result histogram. It is not implemented.
func CombineTemplates(templates, histNames []string, resultPath, resultHist string, combine CombineFunc) error {
	return fmt.Errorf("%w: CombineTemplates", ErrUnimplemented)
}

// ConcatenateToys would merge shard files into one shard on disk, optionally
// refusing shards with different "version" metadata. It is not implemented;
// use Aggregate and WriteShard.
func ConcatenateToys(paths []string, outputPath string, enforceEqualVersion bool) error {
	return fmt.Errorf("%w: ConcatenateToys", ErrUnimplemented)
}

// ConcatenateFits would merge fit-result files into one file. It is not
// implemented.
func ConcatenateFits(paths []string, outputPath string) error {
	return fmt.Errorf("%w: ConcatenateFits", ErrUnimplemented)
}
