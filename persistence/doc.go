/*
Package persistence saves and restores session memory state across process
restarts.

A SessionState captures the three parts of an AutoContextMemory (working
log, original log, offload store) under a session ID. Three SessionStore
backends are provided: a JSON file store for single-node deployments, a
Redis store for distributed ones, and a GORM store for SQL databases.
*/
package persistence
