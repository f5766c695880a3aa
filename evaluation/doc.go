// Package evaluation scores a predicted neural-tissue segmentation against
// ground truth.
//
// # Neuron ids
//
// NeuronIDs optionally masks label borders in the ground truth with
// CreateBorderMask, remaps the background, and computes the variation of
// information and the adapted Rand error of a segmentation.
//
// # Clefts
//
// Clefts compares two synaptic cleft volumes through distance fields: a
// predicted cleft voxel is a false positive when it lies farther than a
// threshold from every ground-truth cleft voxel, and vice versa.
//
// # Synaptic partners
//
// SynapticPartners matches predicted (pre, post) annotation pairs to ground
// truth pairs with a minimum-cost assignment and reports the F-score.
//
// All evaluators are stateless over their inputs; repeated calls with the
// same inputs return identical results.
package evaluation
