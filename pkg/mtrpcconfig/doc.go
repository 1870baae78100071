// Package mtrpcconfig loads and validates the YAML configuration file:
// where the RPC tree's source modules live, the AMQP connection
// parameters, exchange types, bindings, manager/responder tuning
// attributes, logging settings, and OS settings. Defaults are filled in
// and malformed sections get descriptive wrapped errors.
package mtrpcconfig
