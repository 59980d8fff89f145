// Package classifier is the boundary to the trained models. Each model takes
// one fixed-width feature vector and answers benign or phishing.
package classifier

import (
	"context"
	"fmt"
)

type Label int

const (
	Benign   Label = 0
	Phishing Label = 1
)

func (l Label) String() string {
	switch l {
	case Benign:
		return "benign"
	case Phishing:
		return "phishing"
	}
	return fmt.Sprintf("label(%d)", int(l))
}

// LabelFromClass maps a raw class value emitted by a model to a Label.
func LabelFromClass(class int64) (Label, error) {
	switch class {
	case 0:
		return Benign, nil
	case 1:
		return Phishing, nil
	}
	return 0, fmt.Errorf("model returned unknown class %d", class)
}

// Predictor classifies one feature vector whose column order was fixed at
// training time.
type Predictor interface {
	Predict(ctx context.Context, vector []float32) (Label, error)
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(ctx context.Context, vector []float32) (Label, error)

func (f PredictorFunc) Predict(ctx context.Context, vector []float32) (Label, error) {
	return f(ctx, vector)
}
