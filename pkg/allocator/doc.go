/*
Package allocator reserves collision-free bundle directories under a storage root.

Two strategies are provided:

  - Sequential names a directory after the sanitized seed plus the next free numeric
    suffix ("My_Concept_3"). Scanning and creating are not atomic on a filesystem, so every
    call is serialized behind a per-seed lock, optionally backed by a DistributedLocker when
    several processes share one root.
  - Token names a directory with a random UUID. Each call claims a disjoint name, so no
    locking is needed; it is the strategy for concurrent service mode.
*/
package allocator
