/*
Package session serializes access to conversation state.

At most one invocation per conversation runs at a time. Within a process this
is a reference-counted lock per conversation id; across replicas an optional
ports.DistributedLocker (see pkg/adapters/redis) is taken inside the local lock.
*/
package session
