package domain

// KeyPrefix namespaces all keys this service writes to the durable store.
const KeyPrefix = "semsearch:"
