/*
Package mondrian implements an online Mondrian forest classifier.

A Mondrian forest is a collection of Mondrian trees: random,
budget-driven partitions of feature space that are grown incrementally
as samples stream in, preserving the projective consistency of an
offline Mondrian process. Each node keeps a class histogram and
Beta-distributed decision parameters used for density estimation;
classification descends the tree accumulating a posterior smoothed
with interpolated Kneser-Ney, and the forest averages the posteriors
of its trees into a prediction and a confidence score.
*/
package mondrian
