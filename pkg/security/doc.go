/*
Package security groups the gateway's access and transport controls.

  - auth checks client API keys on /v1 routes. Keys are compared by SHA-256
    hash and the matching key's owner becomes the request's user id.
  - tls terminates HTTPS with certificates that reload on change.
  - secrets resolves ${secret:name} references in provider and client keys
    from the environment or a secrets directory.
*/
package security
