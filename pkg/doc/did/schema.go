/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

const schemaV1 = `{
  "required": [
    "id"
  ],
  "properties": {
    "@context": {
      "oneOf": [
        {
          "type": "string",
          "pattern": "^https://(w3id.org|www.w3.org/ns)/did/v1$"
        },
        {
          "type": "array",
          "items": [
            {
              "type": "string",
              "pattern": "^https://(w3id.org|www.w3.org/ns)/did/v1$"
            }
          ],
          "uniqueItems": true,
          "additionalItems": {
            "oneOf": [
              {
                "type": "object"
              },
              {
                "type": "string"
              }
            ]
          }
        }
      ]
    },
    "id": {
      "type": "string",
      "pattern": "^did:"
    },
    "controller": {
      "oneOf": [
        {
          "type": "string"
        },
        {
          "type": "array",
          "items": {
            "type": "string"
          }
        }
      ]
    },
    "alsoKnownAs": {
      "type": "array",
      "items": {
        "type": "string",
        "format": "uri"
      },
      "uniqueItems": true
    },
    "verificationMethod": {
      "type": "array",
      "items": {
        "$ref": "#/definitions/verificationMethod"
      }
    },
    "authentication": {
      "$ref": "#/definitions/relationship"
    },
    "assertionMethod": {
      "$ref": "#/definitions/relationship"
    },
    "keyAgreement": {
      "$ref": "#/definitions/relationship"
    },
    "capabilityInvocation": {
      "$ref": "#/definitions/relationship"
    },
    "capabilityDelegation": {
      "$ref": "#/definitions/relationship"
    },
    "service": {
      "type": "array",
      "items": {
        "$ref": "#/definitions/service"
      }
    }
  },
  "definitions": {
    "verificationMethod": {
      "required": [
        "id",
        "type",
        "controller"
      ],
      "type": "object",
      "minProperties": 4,
      "properties": {
        "id": {
          "type": "string"
        },
        "type": {
          "type": "string"
        },
        "controller": {
          "type": "string"
        },
        "publicKeyJwk": {
          "type": "object",
          "required": [
            "kty"
          ]
        },
        "publicKeyMultibase": {
          "type": "string"
        },
        "publicKeyBase58": {
          "type": "string"
        }
      }
    },
    "relationship": {
      "type": "array",
      "items": {
        "oneOf": [
          {
            "$ref": "#/definitions/verificationMethod"
          },
          {
            "type": "string"
          }
        ]
      }
    },
    "service": {
      "required": [
        "id",
        "type",
        "serviceEndpoint"
      ],
      "type": "object",
      "properties": {
        "id": {
          "type": "string"
        },
        "type": {
          "type": "string"
        },
        "serviceEndpoint": {
          "oneOf": [
            {
              "type": "array"
            },
            {
              "type": "object"
            },
            {
              "type": "string",
              "format": "uri"
            }
          ]
        }
      }
    }
  }
}`
