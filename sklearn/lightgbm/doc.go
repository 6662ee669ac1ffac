// Package lightgbm trains leaf-wise gradient boosted decision trees in the
// style of LightGBM.
//
// Trees are grown on histogram-binned features by always expanding the leaf
// with the largest gain, up to NumLeaves leaves. Training predictions are
// updated from the leaf assignment of each sample rather than by re-walking
// every tree.
//
//	reg := lightgbm.NewLGBMRegressor().
//	    WithNumIterations(300).
//	    WithMaxDepth(8).
//	    WithLearningRate(0.05)
//	if err := reg.Fit(X, y); err != nil {
//	    return err
//	}
//	pred, err := reg.Predict(Xtest)
//
// The Trainer is exported so that other boosting front ends can reuse it
// with a depth-wise growth policy.
package lightgbm
