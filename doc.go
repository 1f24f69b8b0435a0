/*
go-deadtrees detects probable dead trees in aerial raster imagery and
validates the detections against ground truth point data.

The detection pipeline is a fixed sequence of raster and vector
transforms: unsupervised classification, reclassification of the dead
tree class, spectral band masking, morphological cleanup, region grouping,
polygon conversion, area filtering and buffering. All geospatial math is
delegated to an Engine implementation, the opencv subpackage provides one
built on OpenCV and a polygon clipping library.

The eval subpackage computes precision, recall and F1 from a double
spatial join between detected polygons and ground truth points.

See example code and usage in the example subdirectory.
*/
package deadtrees
