/*
Package session serializes access to conversation state.

Every chat turn is a read-modify-write of one session's flow position. The Manager
guarantees that turns of the same session never interleave, within one process through
reference-counted mutexes and across replicas through an optional DistributedLocker,
while turns of different sessions run fully in parallel.
*/
package session
