// Package loader loads pretrained checkpoints into MobileVision models.
//
// It resolves a checkpoint source (local path or HTTP URL, cached under the
// user cache directory), reads the model_state section, normalizes weight
// names from foreign training setups (the "module." prefix left by
// data-parallel wrappers), and hands the result to the model's strict
// LoadStateDict.
package loader
