package export

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// countPages parses an assembled PDF and returns its page count.
func countPages(pdf []byte) (int, error) {
	// pdfcpu otherwise writes a config file under the user config dir.
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, fmt.Errorf("read assembled pdf: %w", err)
	}
	return n, nil
}
