// Package presidio implements detector.Detector against a Presidio analyzer
// service over its REST API.
package presidio
