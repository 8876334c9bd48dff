// Liitos - Integration Lifecycle Engine
// The backend of the PII-scan onboarding console.
package main

func main() {
	Execute()
}
