// Package coupling finds pairs of markers on different chromosomes whose
// dosage vectors agree everywhere except where a wildcard (0.5) is involved.
//
// Two markers are coupled unless some sample is 0 at one marker and 1 at the
// other. With dosages restricted to {0, 0.5, 1}, that is exactly the case
// where the elementwise difference reaches -1 or +1.
//
// The all-pairs scan is O(n^2 * m) for n markers and m samples. Rows are split
// into contiguous blocks of roughly equal pair counts and scanned in parallel;
// blocks are merged in order so the output never depends on thread count.
package coupling
