// Package lineage encodes processing history into BIDS-style file names.
//
// A derived file name is the input name with the stage tokens of every
// transformation applied so far appended to its desc entity:
//
//	sub-01_ses-1_dwi.nii.gz
//	sub-01_ses-1_desc-Xc_dwi.nii.gz
//	sub-01_ses-1_desc-XcUn_dwi.nii.gz
//	sub-01_ses-1_desc-dwiXcUnCNN_mask.nii.gz
//
// When a transformation changes the role suffix, the input role is kept as a
// source prefix inside desc ("dwi" above) so the history stays readable from
// the name alone. Names are pure values: nothing in this package touches the
// filesystem, and the same input always derives the same output.
package lineage
