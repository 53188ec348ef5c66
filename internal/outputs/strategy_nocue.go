//go:build nocue

package outputs

func fullStrategy() (Strategy, bool) {
	return nil, false
}
